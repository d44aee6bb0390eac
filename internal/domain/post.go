package domain

// Post represents one raw text item fetched from a social source.
// Posts are ephemeral: they exist only for the duration of a cycle and
// are never persisted.
type Post struct {
	Source string // source tag, e.g. "reddit"
	Text   string // cleaned UTF-8 text (title + body)
}
