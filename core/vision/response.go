package vision

// Response is the fully assembled result of one prompt/response cycle.
type Response struct {
	Content string
	Usage   *Usage
}
