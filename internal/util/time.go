package util

import "time"

// Now devolve o instante atual em UTC; timestamps persistidos são sempre UTC.
func Now() time.Time {
	return time.Now().UTC()
}
