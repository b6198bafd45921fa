package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_SingleXMLCall(t *testing.T) {
	t.Parallel()

	x := New(nil)
	text := "Let me check that.\n<tool_call>\n<name>get_time</name>\n<parameters>{\"zone\": \"UTC\"}</parameters>\n</tool_call>"

	calls, diags := x.Extract(text)
	require.Len(t, calls, 1)
	assert.Empty(t, diags)
	assert.Equal(t, "get_time", calls[0].Name)
	assert.Equal(t, "UTC", calls[0].Arguments["zone"])
}

func TestExtract_MultipleCallsKeepsFirst(t *testing.T) {
	t.Parallel()

	x := New(nil)
	text := `<tool_call><name>one</name><parameters>{}</parameters></tool_call>
<tool_call><name>two</name><parameters>{}</parameters></tool_call>
<tool_call><name>three</name><parameters>{}</parameters></tool_call>`

	calls, diags := x.Extract(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "one", calls[0].Name)
	assert.Len(t, diags, 2, "both dropped calls should be reported")
}

func TestExtract_MalformedParametersDropsCall(t *testing.T) {
	t.Parallel()

	x := New(nil)
	text := `<tool_call><name>broken</name><parameters>{not json at all</parameters></tool_call>`

	calls, diags := x.Extract(text)
	assert.Empty(t, calls)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "broken")
}

func TestExtract_EmptyParametersYieldsEmptyArguments(t *testing.T) {
	t.Parallel()

	x := New(nil)
	calls, _ := x.Extract(`<tool_call><name>ping</name><parameters></parameters></tool_call>`)
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].Arguments)
}

func TestExtract_MissingNameDropsBlock(t *testing.T) {
	t.Parallel()

	x := New(nil)
	calls, diags := x.Extract(`<tool_call><parameters>{}</parameters></tool_call>`)
	assert.Empty(t, calls)
	assert.NotEmpty(t, diags)
}

func TestExtract_JSONBlockSyntax(t *testing.T) {
	t.Parallel()

	x := New(nil)
	text := `<tool_calls>[{"type":"function","function":{"name":"calc","arguments":"{\"expr\":\"2+2\"}"}}]</tool_calls>`

	calls, diags := x.Extract(text)
	require.Len(t, calls, 1)
	assert.Empty(t, diags)
	assert.Equal(t, "calc", calls[0].Name)
	assert.Equal(t, "2+2", calls[0].Arguments["expr"])
}

func TestExtract_JSONBlockEmptyAndNullArguments(t *testing.T) {
	t.Parallel()

	x := New(nil)
	text := `<tool_calls>[
{"type":"function","function":{"name":"a","arguments":""}},
{"type":"function","function":{"name":"b","arguments":null}}
]</tool_calls>`

	calls, diags := x.Extract(text)
	// Both entries are valid; the single-call rule then keeps only the first.
	require.Len(t, calls, 1)
	assert.Equal(t, "a", calls[0].Name)
	assert.NotEmpty(t, diags)
}

func TestExtract_JSONBlockInvalidArgumentsDropped(t *testing.T) {
	t.Parallel()

	x := New(nil)
	text := `<tool_calls>[{"type":"function","function":{"name":"a","arguments":"{oops"}}]</tool_calls>`

	calls, diags := x.Extract(text)
	assert.Empty(t, calls)
	assert.NotEmpty(t, diags)
}

func TestExtract_XMLParameterFallback(t *testing.T) {
	t.Parallel()

	x := New(nil)
	text := `<tool_call><name>fetch</name><parameters><url>https://example.com</url><retries>3</retries><verbose>true</verbose></parameters></tool_call>`

	calls, _ := x.Extract(text)
	require.Len(t, calls, 1)
	assert.Equal(t, "https://example.com", calls[0].Arguments["url"])
	assert.Equal(t, 3, calls[0].Arguments["retries"])
	assert.Equal(t, true, calls[0].Arguments["verbose"])
}

func TestExtract_UnclosedBlockYieldsNothing(t *testing.T) {
	t.Parallel()

	x := New(nil)
	calls, _ := x.Extract(`text before <tool_call><name>partial</name>`)
	assert.Empty(t, calls)
}

func TestStrip(t *testing.T) {
	t.Parallel()

	text := "Answer first.\n<tool_call><name>x</name><parameters>{}</parameters></tool_call>\nAnswer after."
	assert.Equal(t, "Answer first.\n\nAnswer after.", Strip(text))

	jsonText := `before <tool_calls>[{"type":"function","function":{"name":"x"}}]</tool_calls> after`
	assert.Equal(t, "before  after", Strip(jsonText))
}

func TestHasCalls(t *testing.T) {
	t.Parallel()

	assert.True(t, HasCalls("<tool_call><name>x</name></tool_call>"))
	assert.True(t, HasCalls("<tool_calls>[]</tool_calls>"))
	assert.False(t, HasCalls("plain prose with <thinking>notes</thinking>"))
}
