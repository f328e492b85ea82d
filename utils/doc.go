// Package utils provides shared utility functions for the delay
// tracker: great-circle distance and time formatting.
package utils
