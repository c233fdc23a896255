package classify

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/plumeapp/plume/utils"
)

const classifyPrompt = `You label social feed posts. Given the post body, respond with strict JSON only:
{"topic": "<one short topic label>", "tags": ["<1 to 4 short tag labels>"]}`

// OpenAIClassifier labels post bodies through an OpenAI compatible chat
// completion endpoint.
type OpenAIClassifier struct {
	client    *openai.Client
	chatModel string
}

// NewOpenAIClassifier reads OPENAI_API_KEY, OPENAI_BASE_URL and
// OPENAI_CHAT_MODEL from env.
func NewOpenAIClassifier() *OpenAIClassifier {
	cfg := openai.DefaultConfig(os.Getenv("OPENAI_API_KEY"))
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	chatModel := os.Getenv("OPENAI_CHAT_MODEL")
	if chatModel == "" {
		chatModel = openai.GPT3Dot5Turbo
	}
	return &OpenAIClassifier{
		client:    openai.NewClientWithConfig(cfg),
		chatModel: chatModel,
	}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, body string) (*Result, error) {
	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: classifyPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: body,
				},
			},
			Temperature: 0.2,
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "classification request failed")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("classification returned no choices")
	}

	var parsed struct {
		Topic string   `json:"topic"`
		Tags  []string `json:"tags"`
	}
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, errors.Wrap(err, "classification returned malformed JSON")
	}

	result := &Result{Topic: strings.TrimSpace(parsed.Topic)}
	for _, tag := range parsed.Tags {
		tag = strings.TrimSpace(tag)
		// Models repeat labels under light prompting, dedup before capping.
		if tag == "" || utils.ContainsString(result.Tags, tag) {
			continue
		}
		result.Tags = append(result.Tags, tag)
		if len(result.Tags) == MaxTags {
			break
		}
	}
	return result, nil
}
