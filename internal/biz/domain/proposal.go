package domain

// ButtonStyle hints how prominently a control is drawn
type ButtonStyle string

const (
	StyleDefault ButtonStyle = ""
	StylePrimary ButtonStyle = "primary"
	StyleDanger  ButtonStyle = "danger"
)

// Button is an interactive control whose Value is an encoded PendingAction
type Button struct {
	ActionID string
	Label    string
	Style    ButtonStyle
	Value    string
}

// Section is one block of text, optionally with a control beside it
type Section struct {
	Text   string
	Button *Button
}

// Proposal is a transport-neutral interactive message. Text is the plain
// fallback shown in notifications.
type Proposal struct {
	Text     string
	Sections []Section
	Actions  []Button
}

// TextProposal builds a proposal with no controls
func TextProposal(text string) *Proposal {
	return &Proposal{Text: text, Sections: []Section{{Text: text}}}
}

// Buttons returns every control of the proposal in display order
func (p *Proposal) Buttons() []Button {
	var out []Button
	for _, s := range p.Sections {
		if s.Button != nil {
			out = append(out, *s.Button)
		}
	}
	return append(out, p.Actions...)
}
