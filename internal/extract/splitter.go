package extract

import "strings"

const (
	tagThinkingOpen  = "<thinking>"
	tagThinkingClose = "</thinking>"
)

// StreamSplitter routes a chunked assistant stream into thinking and answer
// channels. The in-thinking flag survives chunk boundaries, and the tags
// themselves may straddle chunks: a trailing fragment that could still grow
// into a tag is held back until the next chunk resolves it.
type StreamSplitter struct {
	pending    string
	inThinking bool
}

// NewStreamSplitter creates a splitter positioned in the answer channel.
func NewStreamSplitter() *StreamSplitter {
	return &StreamSplitter{}
}

// InThinking reports whether the splitter is currently inside an open
// thinking segment.
func (s *StreamSplitter) InThinking() bool {
	return s.inThinking
}

// Feed consumes the next chunk and returns the text newly routed to each
// channel. Tag markup itself is emitted to neither.
func (s *StreamSplitter) Feed(chunk string) (thinking, answer string) {
	buf := s.pending + chunk
	s.pending = ""

	var think, ans strings.Builder
	emit := func(text string) {
		if s.inThinking {
			think.WriteString(text)
		} else {
			ans.WriteString(text)
		}
	}

	pos := 0
	for pos < len(buf) {
		lt := strings.IndexByte(buf[pos:], '<')
		if lt < 0 {
			emit(buf[pos:])
			pos = len(buf)
			break
		}
		lt += pos
		emit(buf[pos:lt])

		tag := tagThinkingOpen
		if s.inThinking {
			tag = tagThinkingClose
		}
		rest := buf[lt:]
		switch {
		case strings.HasPrefix(rest, tag):
			s.inThinking = !s.inThinking
			pos = lt + len(tag)
		case len(rest) < len(tag) && strings.HasPrefix(tag, rest):
			// Possible tag split across chunks; hold it back.
			s.pending = rest
			pos = len(buf)
		default:
			emit("<")
			pos = lt + 1
		}
	}
	return think.String(), ans.String()
}

// Flush releases any held-back fragment at end of stream. A fragment that
// never completed into a tag belongs to the channel that was active.
func (s *StreamSplitter) Flush() (thinking, answer string) {
	if s.pending == "" {
		return "", ""
	}
	tail := s.pending
	s.pending = ""
	if s.inThinking {
		return tail, ""
	}
	return "", tail
}
