package llm

import (
	"bufio"
	"io"
	"strings"
)

const maxEventSize = 1 << 20

// ScanData calls fn with the payload of every "data:" line of a server-sent
// event stream until fn reports done, fn fails, or the body ends.
func ScanData(r io.Reader, fn func(data string) (done bool, err error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		done, err := fn(data)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return scanner.Err()
}
