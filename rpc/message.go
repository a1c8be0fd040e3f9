package rpc

// Message is one rpc envelope: a string-keyed map with at least an "op"
// field. The comm layer imposes no schema; this package's conventions
// are the contract between server and client.
type Message = map[string]any

// Op returns the envelope's operation name, empty if absent.
func Op(msg Message) string {
	op, _ := msg["op"].(string)
	return op
}

// wantsReply reports whether the sender expects a response. Defaults to
// true; a request opts out with "reply": false.
func wantsReply(msg Message) bool {
	if v, ok := msg["reply"].(bool); ok {
		return v
	}
	return true
}

// errorReply builds the error response envelope for a failed request.
func errorReply(err error) Message {
	return Message{"status": "error", "error": err.Error()}
}
