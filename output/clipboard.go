package output

import cb "github.com/atotto/clipboard"

type clipboardSink struct{}

func (clipboardSink) Emit(text string) error {
	return cb.WriteAll(text)
}

// CopyToClipboard is the one-shot used when a long session ends and the
// whole dictation is handed over at once.
func CopyToClipboard(text string) error {
	return cb.WriteAll(text)
}
