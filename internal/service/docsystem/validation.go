package docsystem

import (
	"bytes"
	"encoding/json"
	"fmt"

	"blockdocs/internal/config"
	"blockdocs/internal/domain"
	models "blockdocs/internal/domain/models/docsystem"
	docsysSvc "blockdocs/internal/domain/services/docsystem"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var (
	emptyObject   = json.RawMessage(`{}`)
	emptyRichText = json.RawMessage(`{"type":"doc","content":[]}`)
)

func (s *documentCoordinator) validateCreateRequest(req *docsysSvc.CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxDocumentTitleLength),
		),
	)
}

func (s *documentCoordinator) validateUpdateRequest(req *docsysSvc.UpdateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxDocumentTitleLength),
		),
		validation.Field(&req.Blocks,
			validation.Length(0, config.MaxBlocksPerDocument),
			validation.Each(validation.By(s.validateBlockType)),
		),
	)
}

func (s *documentCoordinator) validateMoveRequest(req *docsysSvc.MoveDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Position, validation.Min(0)),
	)
}

func (s *documentCoordinator) validateBlockType(value interface{}) error {
	block, ok := value.(docsysSvc.BlockRequest)
	if !ok {
		return fmt.Errorf("invalid block")
	}

	if block.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !s.blockTypes.IsKnown(block.Type) {
		return fmt.Errorf("type must be one of: %v", s.blockTypes.Types())
	}
	return nil
}

// buildBlocks turns request blocks into rows in declared order.
// Payload problems are reported as ErrInvalidBlockContent so nothing is written.
func (s *documentCoordinator) buildBlocks(reqs []docsysSvc.BlockRequest) ([]models.Block, error) {
	blocks := make([]models.Block, len(reqs))
	seen := make(map[string]int, len(reqs))

	for i, req := range reqs {
		if req.ID != "" {
			if _, err := uuid.Parse(req.ID); err != nil {
				return nil, fmt.Errorf("block %d: id %q is not a UUID: %w", i, req.ID, domain.ErrInvalidBlockContent)
			}
			if first, dup := seen[req.ID]; dup {
				return nil, fmt.Errorf("block %d: id %s already used by block %d: %w", i, req.ID, first, domain.ErrInvalidBlockContent)
			}
			seen[req.ID] = i
		}

		richText := s.blockTypes.IsRichText(req.Type)

		content := bytes.TrimSpace(req.Content)
		if len(content) == 0 || bytes.Equal(content, []byte("null")) {
			content = emptyObject
			if richText {
				content = emptyRichText
			}
		}

		if len(content) > config.MaxBlockContentBytes {
			return nil, fmt.Errorf("block %d: content exceeds %d bytes: %w", i, config.MaxBlockContentBytes, domain.ErrInvalidBlockContent)
		}
		if !gjson.ValidBytes(content) || !gjson.ParseBytes(content).IsObject() {
			return nil, fmt.Errorf("block %d: content must be a JSON object: %w", i, domain.ErrInvalidBlockContent)
		}
		if richText {
			if err := s.richText.Validate(string(content)); err != nil {
				return nil, fmt.Errorf("block %d (%s): %w: %w", i, req.Type, domain.ErrInvalidBlockContent, err)
			}
		}

		blocks[i] = models.Block{
			ID:       req.ID,
			Type:     req.Type,
			Content:  json.RawMessage(content),
			Position: i,
		}
	}

	return blocks, nil
}
