package download

import "fmt"

// Result is the outcome of downloading a single URL.
type Result struct {
	URL   string
	Path  string // Destination path; empty when the URL was rejected before fetching
	Bytes int64  // Bytes written on success
	Err   error
}

// Summary holds one Result per input URL, in input order.
type Summary struct {
	Results []Result
}

// Succeeded returns the results without an error.
func (s *Summary) Succeeded() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Err == nil {
			out = append(out, r)
		}
	}
	return out
}

// Failed returns the results with an error.
func (s *Summary) Failed() []Result {
	var out []Result
	for _, r := range s.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response: %s", e.Status)
}
