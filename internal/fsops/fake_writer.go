package fsops

import (
	"bytes"
	"io"
)

// FakeWriter implements Writer for testing and dry runs.
// Records every replace call and the bytes that would have been written
// without touching the file system.
type FakeWriter struct {
	Calls []string
	Data  map[string][]byte
}

func (f *FakeWriter) Replace(path string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	f.Calls = append(f.Calls, "replace:"+path)
	if f.Data == nil {
		f.Data = map[string][]byte{}
	}
	f.Data[path] = buf.Bytes()
	return nil
}

// Reset forgets recorded calls and data.
func (f *FakeWriter) Reset() {
	f.Calls = nil
	f.Data = nil
}
