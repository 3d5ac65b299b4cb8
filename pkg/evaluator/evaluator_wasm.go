//go:build (js && wasm) || wasip1

package evaluator

// init turns off concurrent EvalMany on WebAssembly targets, where the Go
// runtime schedules every goroutine on a single thread.
func init() {
	defaultConcurrency = false
}
