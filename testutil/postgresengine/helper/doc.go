// Package helper provides observability test doubles for the lending store.
package helper
