package models

type NoticeVariant string

const (
	NoticeDefault     NoticeVariant = "default"
	NoticeDestructive NoticeVariant = "destructive"
)

// Notice is a toast shown to the user.
type Notice struct {
	Variant     NoticeVariant `json:"variant"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
}

func Info(title, description string) *Notice {
	return &Notice{Variant: NoticeDefault, Title: title, Description: description}
}

func Failure(title, description string) *Notice {
	return &Notice{Variant: NoticeDestructive, Title: title, Description: description}
}
