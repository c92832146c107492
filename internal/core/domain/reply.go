package domain

// Option is a selectable choice rendered next to a reply.
type Option struct {
	Label string
	Data  string
}

// Reply is outbound chat content. Markdown enables *bold* and `code` spans.
// MainMenu asks the gateway to attach the persistent main-menu keyboard;
// Options, when present, take precedence as an inline choice list.
type Reply struct {
	Text     string
	Markdown bool
	MainMenu bool
	Options  []Option
}
