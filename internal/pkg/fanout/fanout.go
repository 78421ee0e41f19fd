package fanout

import "sync"

// Result pairs one input with the error its task settled with.
type Result[T any] struct {
	Input T
	Err   error
}

// Settle runs fn once per input concurrently and waits for every task to
// finish. A failing task never cancels its siblings; every outcome is
// reported, in input order.
func Settle[T any](inputs []T, fn func(T) error) []Result[T] {
	results := make([]Result[T], len(inputs))

	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input T) {
			defer wg.Done()
			results[i] = Result[T]{Input: input, Err: fn(input)}
		}(i, input)
	}
	wg.Wait()

	return results
}

// Failures filters settled results down to the ones that errored.
func Failures[T any](results []Result[T]) []Result[T] {
	var failed []Result[T]
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}
