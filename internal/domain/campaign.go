package domain

import "time"

type CampaignStatus string

const (
	CampaignDraft   CampaignStatus = "draft"
	CampaignSending CampaignStatus = "sending"
	CampaignDone    CampaignStatus = "done"
	CampaignFailed  CampaignStatus = "failed"
)

// CanTransition reports whether a campaign may move from s to next.
// Transitions only go forward: draft -> sending -> done|failed.
func (s CampaignStatus) CanTransition(next CampaignStatus) bool {
	switch s {
	case CampaignDraft:
		return next == CampaignSending
	case CampaignSending:
		return next == CampaignDone || next == CampaignFailed
	default:
		return false
	}
}

func (s CampaignStatus) IsTerminal() bool {
	return s == CampaignDone || s == CampaignFailed
}

type MessageType string

const (
	MessageText  MessageType = "text"
	MessageMedia MessageType = "media"
)

type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

type Campaign struct {
	ID            int64          `db:"id" json:"id"`
	Title         string         `db:"title" json:"title"`
	Message       string         `db:"message" json:"message"`
	MessageType   MessageType    `db:"message_type" json:"messageType"`
	MediaURL      *string        `db:"media_url" json:"mediaUrl,omitempty"`
	SenderID      int64          `db:"sender_id" json:"senderId"`
	ListID        int64          `db:"list_id" json:"listId"`
	Status        CampaignStatus `db:"status" json:"status"`
	TotalContacts int            `db:"total_contacts" json:"totalContacts"`
	SuccessCount  int            `db:"success_count" json:"successCount"`
	FailureCount  int            `db:"failure_count" json:"failureCount"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	StartedAt     *time.Time     `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt   *time.Time     `db:"completed_at" json:"completedAt,omitempty"`

	Logs []DeliveryLog `db:"-" json:"logs"`
}

// MediaURLValue returns the media url or an empty string.
func (c *Campaign) MediaURLValue() string {
	if c.MediaURL == nil {
		return ""
	}
	return *c.MediaURL
}

// DeliveryLog is the outcome of one send attempt to one contact.
// Seq is the contact's position in the run.
type DeliveryLog struct {
	CampaignID int64          `db:"campaign_id" json:"-"`
	Seq        int            `db:"seq" json:"-"`
	Phone      string         `db:"phone" json:"phone"`
	Status     DeliveryStatus `db:"status" json:"status"`
	Error      *string        `db:"error" json:"error,omitempty"`
	MessageID  *string        `db:"message_id" json:"messageId,omitempty"`
	SentAt     time.Time      `db:"sent_at" json:"sentAt"`
}

// Progress is the lightweight view of a running campaign used for polling.
type Progress struct {
	CampaignID    int64          `json:"campaignId"`
	Status        CampaignStatus `json:"status"`
	TotalContacts int            `json:"totalContacts"`
	SuccessCount  int            `json:"successCount"`
	FailureCount  int            `json:"failureCount"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

type CampaignStats struct {
	TotalCampaigns int64 `db:"total_campaigns" json:"totalCampaigns"`
	Draft          int64 `db:"draft" json:"draft"`
	Sending        int64 `db:"sending" json:"sending"`
	Done           int64 `db:"done" json:"done"`
	Failed         int64 `db:"failed" json:"failed"`
	MessagesSent   int64 `db:"messages_sent" json:"messagesSent"`
	MessagesFailed int64 `db:"messages_failed" json:"messagesFailed"`
	TextCampaigns  int64 `db:"text_campaigns" json:"textCampaigns"`
	MediaCampaigns int64 `db:"media_campaigns" json:"mediaCampaigns"`
}

// DashboardStats aggregates store-wide totals for the dashboard.
type DashboardStats struct {
	TotalSenders  int64         `json:"totalSenders"`
	TotalLists    int64         `json:"totalLists"`
	TotalContacts int64         `json:"totalContacts"`
	Campaigns     CampaignStats `json:"campaigns"`
	// SuccessRate is the rounded percentage of sent messages over all attempts.
	SuccessRate int `json:"successRate"`
}
