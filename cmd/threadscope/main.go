// Command threadscope extracts posts and their comment threads from
// dynamically loaded forum pages, either once from the command line or as
// an HTTP service.
package main

func main() {
	Execute()
}
