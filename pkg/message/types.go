// Package message defines the platform-neutral envelope that every channel
// produces and consumes.
//
// An Envelope is built once through New (or Decode) and is immutable after
// that: it can be shared across goroutines, nested inside another envelope's
// reply target, and outlive the channel that produced it.
package message

// MsgType is the kind of content an envelope carries. The set is closed;
// native kinds with no mapping use Unsupported.
type MsgType string

const (
	TypeText        MsgType = "Text"
	TypeImage       MsgType = "Image"
	TypeAudio       MsgType = "Audio"
	TypeFile        MsgType = "File"
	TypeLocation    MsgType = "Location"
	TypeVideo       MsgType = "Video"
	TypeLink        MsgType = "Link"
	TypeSticker     MsgType = "Sticker"
	TypeUnsupported MsgType = "Unsupported"
	TypeCommand     MsgType = "Command"
)

var msgTypes = []MsgType{
	TypeText, TypeImage, TypeAudio, TypeFile, TypeLocation,
	TypeVideo, TypeLink, TypeSticker, TypeUnsupported, TypeCommand,
}

// MsgTypes returns every known message type in declaration order.
func MsgTypes() []MsgType {
	out := make([]MsgType, len(msgTypes))
	copy(out, msgTypes)
	return out
}

func (t MsgType) Valid() bool {
	for _, known := range msgTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t MsgType) String() string { return string(t) }

// isMedia reports whether the type is expected to carry a binary payload.
func (t MsgType) isMedia() bool {
	switch t {
	case TypeImage, TypeAudio, TypeFile, TypeVideo, TypeSticker:
		return true
	}
	return false
}

// Source tells who produced a message.
type Source string

const (
	SourceUser   Source = "User"
	SourceGroup  Source = "Group"
	SourceSystem Source = "System"
)

func (s Source) Valid() bool {
	switch s {
	case SourceUser, SourceGroup, SourceSystem:
		return true
	}
	return false
}

func (s Source) String() string { return string(s) }

// TargetType tags the variant held by a Target.
type TargetType string

const (
	TargetMember       TargetType = "Member"
	TargetMessage      TargetType = "Message"
	TargetSubstitution TargetType = "Substitution"
)

func (t TargetType) Valid() bool {
	switch t {
	case TargetMember, TargetMessage, TargetSubstitution:
		return true
	}
	return false
}

func (t TargetType) String() string { return string(t) }
