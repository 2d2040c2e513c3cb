// Command feedmill fetches configured web pages, extracts entries, and
// republishes them as RSS feeds. Run `feedmill --config <path>` or
// `feedmill serve --config <path>`; all CLI parsing, sub-command
// dispatch, and config loading live in internal/cmd.
package main

import "feedmill/internal/cmd"

func main() {
	cmd.Execute()
}
