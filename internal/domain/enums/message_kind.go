package enums

type MessageKind string

const (
	MessageKindText  MessageKind = "TEXT"
	MessageKindImage MessageKind = "IMAGE"
)

func (k MessageKind) Valid() bool {
	return k == MessageKindText || k == MessageKindImage
}
