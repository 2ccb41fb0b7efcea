//go:build unix && fiberhook_retryread

package fiberhook

var defaultReadStrategy = ReadRetryLoop
