package queue

const (
	TypeEmbedBackfill = "card:embed_backfill"
)

type EmbedBackfillPayload struct {
	CardID string `json:"card_id"`
}
