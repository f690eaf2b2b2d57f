package domain

// EventIdeaCreated is the only event discriminator the consumers act on.
// Other values are ignored so new event types can be added to the topic
// without breaking old consumers.
const EventIdeaCreated = "IDEA_CREATED"

// FileDescriptor describes one staged upload inside a ProcessingEvent.
type FileDescriptor struct {
	FileName     string `json:"file_name"`
	OriginalName string `json:"originalname"`
	Path         string `json:"path"`
	MimeType     string `json:"mimetype"`
}

// ReferenceDescriptor describes one external reference inside a
// ProcessingEvent.
type ReferenceDescriptor struct {
	Label       string `json:"label,omitempty"`
	YoutubeLink string `json:"youtube_link,omitempty"`
	WebsiteURL  string `json:"website_url,omitempty"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
}

// Reference converts the wire descriptor to a domain reference.
func (d ReferenceDescriptor) Reference(ideaID string) ExternalReference {
	return ExternalReference{
		IdeaID:      ideaID,
		Label:       d.Label,
		YoutubeLink: d.YoutubeLink,
		WebsiteURL:  d.WebsiteURL,
		URL:         d.URL,
		Title:       d.Title,
	}
}

// ProcessingEvent is the broker payload published once per created idea and
// consumed independently by the upload and embedding consumer groups.
type ProcessingEvent struct {
	IdeaID             string                `json:"idea_id"`
	UserID             string                `json:"user_id"`
	Title              string                `json:"title,omitempty"`
	Description        string                `json:"desc,omitempty"`
	Files              []FileDescriptor      `json:"files"`
	ExternalReferences []ReferenceDescriptor `json:"external_references"`
	Event              string                `json:"event"`
}
