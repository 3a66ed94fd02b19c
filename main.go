// Command affsync keeps a static blog's content tree in sync with its
// Airtable editorial base: it materializes post rows into Markdown, rewrites
// affiliate tokens into tracked links, and verifies no token survives into
// the published tree.
package main

import "affsync/cmd"

func main() {
	cmd.Execute()
}
