package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/tuanngo/cashbook/internal/domain"
)

// SubjectUnknown is filled in when the model could not read a counterparty
// from the image, matching the behavior users expect from scanned receipts:
// the transaction is kept, not dropped.
const SubjectUnknown = "Không rõ"

const receiptPrompt = `Phân tích hình ảnh hoá đơn hoặc màn hình chuyển khoản này và trích xuất các thông tin sau dưới dạng JSON:
{
    "date": "Ngày phát sinh (định dạng YYYY-MM-DD)",
    "subject": "Đối tượng (Tên người gửi/nhận hoặc cửa hàng)",
    "amount": "Số tiền (chỉ để số, ví dụ: 100000)",
    "currency": "Loại tiền tệ (VND hoặc USD)",
    "type": "Bên nhận/chuyển (Thu hoặc Chi)",
    "note": "Ghi chú thêm (Nội dung chuyển khoản hoặc chi tiết hoá đơn)"
}
Chỉ trả về JSON hợp lệ, không có markdown hay text nào khác.`

// GeminiExtractor implements Extractor against the Gemini vision API.
type GeminiExtractor struct {
	model string
}

// NewGeminiExtractor creates an extractor using the given model name. The
// API key is read by the genai client from the environment.
func NewGeminiExtractor(model string) *GeminiExtractor {
	return &GeminiExtractor{model: model}
}

// Extract sends the image to Gemini and decodes the strict-JSON response
// into raw fields.
func (e *GeminiExtractor) Extract(ctx context.Context, image []byte, mimeType string) (domain.RawFields, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return domain.RawFields{}, fmt.Errorf("Extract: create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: receiptPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     image,
					},
				},
			},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return domain.RawFields{}, fmt.Errorf("Extract: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return domain.RawFields{}, fmt.Errorf("Extract: empty response from model")
	}

	fields, err := DecodeFields(rawText)
	if err != nil {
		return domain.RawFields{}, fmt.Errorf("Extract: %w\nraw response: %s", err, rawText)
	}
	return fields, nil
}

// DecodeFields parses the model's JSON object into a RawFields bag,
// tolerating Markdown fences and stray text the model sometimes emits
// despite instructions.
func DecodeFields(raw string) (domain.RawFields, error) {
	clean := cleanModelJSON(raw)

	var payload struct {
		Date     string          `json:"date"`
		Type     string          `json:"type"`
		Subject  string          `json:"subject"`
		Amount   json.RawMessage `json:"amount"` // model returns string or number
		Currency string          `json:"currency"`
		Note     string          `json:"note"`
	}
	if err := json.Unmarshal([]byte(clean), &payload); err != nil {
		return domain.RawFields{}, fmt.Errorf("unmarshal model JSON: %w", err)
	}

	subject := strings.TrimSpace(payload.Subject)
	if subject == "" {
		subject = SubjectUnknown
	}

	return domain.RawFields{
		Date:     payload.Date,
		Type:     payload.Type,
		Subject:  subject,
		Amount:   amountToken(payload.Amount),
		Currency: payload.Currency,
		Note:     payload.Note,
	}, nil
}

// amountToken reduces the amount JSON value to a string token for the
// amount parser, whether the model quoted it or not.
func amountToken(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// cleanModelJSON strips Markdown fences and keeps only the outermost JSON
// object when the model wrapped it in prose.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
