package meter

import (
	"bytes"
	"net/http"
)

// bufferedWriter holds the handler's response until the commit decision is
// made.
type bufferedWriter struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header)}
}

func (b *bufferedWriter) Header() http.Header {
	return b.header
}

func (b *bufferedWriter) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *bufferedWriter) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *bufferedWriter) succeeded() bool {
	s := b.statusCode()
	return s >= 200 && s < 300
}

func (b *bufferedWriter) flush(w http.ResponseWriter) error {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = append(dst[k], v...)
	}
	w.WriteHeader(b.statusCode())
	_, err := w.Write(b.body.Bytes())
	return err
}
