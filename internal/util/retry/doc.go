// Package retry retries operations that fail transiently.
//
// [WithExponentialBackoff] runs an operation until it succeeds, the retry
// budget is spent, or the context is cancelled. Errors wrapped with [Fatal]
// stop the loop immediately. It backs cloud API calls, SSH dialing and
// floating IP binding.
package retry
