package dto

// ConversationTurn is one prior message, oldest first.
type ConversationTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"max=8000"`
}

type AssistantChatRequest struct {
	Message             string             `json:"message" validate:"required,max=4000"`
	ConversationHistory []ConversationTurn `json:"conversationHistory" validate:"max=100,dive"`
}

type AssistantChatResponse struct {
	Response string `json:"response"`
	Booked   bool   `json:"booked"`
}
