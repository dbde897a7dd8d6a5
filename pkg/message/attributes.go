package message

// Attributes is the type-specific structured payload of an envelope. The set
// of implementations is closed so that the type-to-shape table stays
// exhaustively checkable.
type Attributes interface {
	// Kind names the payload shape, e.g. "link" or "media".
	Kind() string
	clone() Attributes
}

// attributeKinds says which payload shape each message type accepts.
// Types missing from the table carry no attributes.
var attributeKinds = map[MsgType]string{
	TypeLink:     kindLink,
	TypeSticker:  kindMedia,
	TypeImage:    kindMedia,
	TypeAudio:    kindMedia,
	TypeLocation: kindLocation,
	TypeCommand:  kindCommand,
}

const (
	kindLink     = "link"
	kindMedia    = "media"
	kindLocation = "location"
	kindCommand  = "command"
)

// LinkAttributes describe a shared link preview.
type LinkAttributes struct {
	Title       string  `json:"title"       validate:"required"`
	Description string  `json:"description" validate:"required"`
	Image       *string `json:"image,omitempty"`
	URL         string  `json:"url"         validate:"required"`
}

func (LinkAttributes) Kind() string { return kindLink }

func (a LinkAttributes) clone() Attributes {
	a.Image = cloneString(a.Image)
	return a
}

// MediaAttributes describe a sticker, picture or voice clip. Exactly one of
// URL and Path should resolve to the bytes.
type MediaAttributes struct {
	Caption string  `json:"caption"`
	URL     *string `json:"url,omitempty"`
	Path    *string `json:"path,omitempty"`
	MIME    string  `json:"mime" validate:"required"`
}

func (MediaAttributes) Kind() string { return kindMedia }

func (a MediaAttributes) clone() Attributes {
	a.URL = cloneString(a.URL)
	a.Path = cloneString(a.Path)
	return a
}

// LocationAttributes hold the coordinates of a Location envelope.
type LocationAttributes struct {
	Latitude  float64 `json:"latitude"  validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

func (LocationAttributes) Kind() string { return kindLocation }

func (a LocationAttributes) clone() Attributes { return a }

// CommandAttributes hold a parsed bot command.
type CommandAttributes struct {
	Name string   `json:"name" validate:"required"`
	Args []string `json:"args,omitempty"`
}

func (CommandAttributes) Kind() string { return kindCommand }

func (a CommandAttributes) clone() Attributes {
	if len(a.Args) == 0 {
		a.Args = nil
	} else {
		a.Args = append([]string(nil), a.Args...)
	}
	return a
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
