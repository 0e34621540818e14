package link

import (
	"bufio"
	"bytes"
	"io"
)

// scanFrames splits the receiver stream into lines ending in CR, LF or CRLF.
// Empty lines are skipped.
func scanFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) && (data[start] == '\r' || data[start] == '\n') {
		start++
	}
	if i := bytes.IndexAny(data[start:], "\r\n"); i >= 0 {
		return start + i + 1, data[start : start+i], nil
	}
	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

// readFrames feeds frames from r until the stream fails, then reports the
// error once. done releases a reader blocked on an abandoned session.
func readFrames(r io.Reader, frames chan<- string, errs chan<- error, done <-chan struct{}) {
	scanner := bufio.NewScanner(r)
	scanner.Split(scanFrames)

	for scanner.Scan() {
		select {
		case frames <- scanner.Text():
		case <-done:
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	errs <- err
}
