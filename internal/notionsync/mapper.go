package notionsync

import (
	"strconv"
	"time"

	"github.com/jomei/notionapi"

	"github.com/tuanngo/cashbook/internal/domain"
)

// txIDProperty is the rich-text column that carries the cash book
// transaction id. The sync keys mirror pages on it, so it must exist in the
// Notion database.
const txIDProperty = "TX ID"

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{
				Content: content,
			},
		},
	}
}

// TransactionToNotionProperties maps one canonical transaction onto the
// Notion cash book database schema: Subject (title), TX ID, Date, Type,
// Amount, Currency, Note, Created By, Source.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		"Subject": notionapi.TitleProperty{
			Title: richText(tx.Subject),
		},
		txIDProperty: notionapi.RichTextProperty{
			RichText: richText(strconv.FormatInt(tx.ID, 10)),
		},
		"Type": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.Type),
			},
		},
		"Amount": notionapi.NumberProperty{
			Number: func() float64 {
				f, _ := tx.Amount.Float64()
				return f
			}(),
		},
		"Currency": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.Currency),
			},
		},
	}

	if t, err := time.Parse("2006-01-02", tx.Date); err == nil {
		d := notionapi.Date(t)
		props["Date"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &d,
			},
		}
	}

	if tx.Note != "" {
		props["Note"] = notionapi.RichTextProperty{
			RichText: richText(tx.Note),
		}
	}

	if tx.CreatedBy != "" {
		props["Created By"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.CreatedBy,
			},
		}
	}

	if tx.Source != "" {
		props["Source"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Source,
			},
		}
	}

	// Converted transactions keep their original amount visible.
	if tx.OriginalAmount != nil {
		orig, _ := tx.OriginalAmount.Float64()
		props["Original Amount"] = notionapi.NumberProperty{
			Number: orig,
		}
		props["Original Currency"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.OriginalCurrency),
			},
		}
	}

	return props
}

// extractTxID reads the transaction id back out of a synced page. Returns 0
// when the page has no usable id.
func extractTxID(page notionapi.Page) int64 {
	prop, ok := page.Properties[txIDProperty]
	if !ok {
		return 0
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok {
		// Query responses may decode by value depending on SDK version.
		if v, ok := prop.(notionapi.RichTextProperty); ok {
			rt = &v
		} else {
			return 0
		}
	}
	if len(rt.RichText) == 0 {
		return 0
	}

	id, err := strconv.ParseInt(rt.RichText[0].PlainText, 10, 64)
	if err != nil || id <= 0 {
		// Fall back to the text content for pages built by this sync.
		if rt.RichText[0].Text != nil {
			id, err = strconv.ParseInt(rt.RichText[0].Text.Content, 10, 64)
			if err != nil {
				return 0
			}
			return id
		}
		return 0
	}
	return id
}
