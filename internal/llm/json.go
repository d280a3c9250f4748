package llm

import (
	"context"
	"fmt"

	"github.com/KingRain/Parsec/internal/util/jsonutil"
)

// GenerateJSON asks c for a JSON answer and decodes the first JSON object
// found in the reply into out. Replies wrapped in code fences or prose are
// accepted.
func GenerateJSON(ctx context.Context, c TextClient, prompt string, out any) error {
	text, err := c.GenerateText(ctx, prompt)
	if err != nil {
		return err
	}
	obj, ok := jsonutil.ExtractObject(text)
	if !ok {
		return ErrInvalidJSON
	}
	if err := jsonutil.UnmarshalFlex([]byte(obj), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}
