package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"mcpmarket/internal/domain"
)

// CreateLocalTool persists a new local tool and returns it with its id.
func (s *Store) CreateLocalTool(ctx context.Context, tool domain.LocalTool) (domain.LocalTool, error) {
	var created domain.LocalTool
	err := s.update(ctx, func(tx *bolt.Tx) error {
		var err error
		created, err = insertLocalTool(tx, tool, s.timestamp())
		return err
	})
	return created, err
}

// SaveLocalTool creates the tool when ID is zero and replaces it otherwise.
func (s *Store) SaveLocalTool(ctx context.Context, tool domain.LocalTool) (domain.LocalTool, error) {
	if tool.ID == 0 {
		return s.CreateLocalTool(ctx, tool)
	}
	if err := validateTool(tool); err != nil {
		return domain.LocalTool{}, err
	}
	out := cloneTool(tool)
	err := s.update(ctx, func(tx *bolt.Tx) error {
		tools, err := bucket(tx, toolsBucketName)
		if err != nil {
			return err
		}
		var existing domain.LocalTool
		found, err := getJSON(tools, out.ID, &existing)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("local tool %d: %w", out.ID, domain.ErrLocalToolNotFound)
		}
		out.CreatedAt = existing.CreatedAt
		out.UpdatedAt = s.timestamp()
		return putJSON(tools, out.ID, out)
	})
	if err != nil {
		return domain.LocalTool{}, err
	}
	return out, nil
}

func (s *Store) GetLocalTool(ctx context.Context, id uint64) (domain.LocalTool, error) {
	var tool domain.LocalTool
	err := s.view(ctx, func(tx *bolt.Tx) error {
		tools, err := bucket(tx, toolsBucketName)
		if err != nil {
			return err
		}
		found, err := getJSON(tools, id, &tool)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("local tool %d: %w", id, domain.ErrLocalToolNotFound)
		}
		return nil
	})
	return tool, err
}

// ListLocalTools returns every local tool, newest first.
func (s *Store) ListLocalTools(ctx context.Context) ([]domain.LocalTool, error) {
	return s.filterTools(ctx, func(domain.LocalTool) bool { return true })
}

func (s *Store) ListLocalToolsByKind(ctx context.Context, kind domain.ToolKind) ([]domain.LocalTool, error) {
	return s.filterTools(ctx, func(t domain.LocalTool) bool { return t.Kind == kind })
}

func (s *Store) ListLocalToolsByStatus(ctx context.Context, status domain.ToolStatus) ([]domain.LocalTool, error) {
	return s.filterTools(ctx, func(t domain.LocalTool) bool { return t.Status == status })
}

func (s *Store) SearchLocalToolsByName(ctx context.Context, name string) ([]domain.LocalTool, error) {
	needle := strings.TrimSpace(name)
	return s.filterTools(ctx, func(t domain.LocalTool) bool { return containsFold(t.Name, needle) })
}

func (s *Store) filterTools(ctx context.Context, keep func(domain.LocalTool) bool) ([]domain.LocalTool, error) {
	var out []domain.LocalTool
	err := s.view(ctx, func(tx *bolt.Tx) error {
		tools, err := bucket(tx, toolsBucketName)
		if err != nil {
			return err
		}
		return tools.ForEach(func(key, value []byte) error {
			var tool domain.LocalTool
			if err := decode(key, value, &tool); err != nil {
				return err
			}
			if keep(tool) {
				out = append(out, tool)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateLocalToolStatus(ctx context.Context, id uint64, status domain.ToolStatus) (domain.LocalTool, error) {
	if !status.Valid() {
		return domain.LocalTool{}, fmt.Errorf("tool status %q: %w", status, domain.ErrInvalidRequest)
	}
	var tool domain.LocalTool
	err := s.update(ctx, func(tx *bolt.Tx) error {
		tools, err := bucket(tx, toolsBucketName)
		if err != nil {
			return err
		}
		found, err := getJSON(tools, id, &tool)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("local tool %d: %w", id, domain.ErrLocalToolNotFound)
		}
		tool.Status = status
		tool.UpdatedAt = s.timestamp()
		return putJSON(tools, id, tool)
	})
	return tool, err
}

// DeleteLocalTools removes the given tools and returns the ids that existed.
func (s *Store) DeleteLocalTools(ctx context.Context, ids ...uint64) ([]uint64, error) {
	var deleted []uint64
	err := s.update(ctx, func(tx *bolt.Tx) error {
		tools, err := bucket(tx, toolsBucketName)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if tools.Get(itob(id)) == nil {
				continue
			}
			if err := tools.Delete(itob(id)); err != nil {
				return fmt.Errorf("%w: delete local tool %d: %v", domain.ErrStore, id, err)
			}
			deleted = append(deleted, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func insertLocalTool(tx *bolt.Tx, tool domain.LocalTool, now time.Time) (domain.LocalTool, error) {
	if err := validateTool(tool); err != nil {
		return domain.LocalTool{}, err
	}
	tools, err := bucket(tx, toolsBucketName)
	if err != nil {
		return domain.LocalTool{}, err
	}
	id, err := nextID(tools)
	if err != nil {
		return domain.LocalTool{}, err
	}
	out := cloneTool(tool)
	out.ID = id
	out.CreatedAt = now
	out.UpdatedAt = now
	if out.Status == "" {
		out.Status = domain.ToolStatusEnabled
	}
	if err := putJSON(tools, id, out); err != nil {
		return domain.LocalTool{}, err
	}
	return out, nil
}

func validateTool(tool domain.LocalTool) error {
	if !tool.Kind.Valid() {
		return fmt.Errorf("tool kind %q: %w", tool.Kind, domain.ErrInvalidRequest)
	}
	if tool.Status != "" && !tool.Status.Valid() {
		return fmt.Errorf("tool status %q: %w", tool.Status, domain.ErrInvalidRequest)
	}
	if len(tool.Config) > 0 && !json.Valid(tool.Config) {
		return fmt.Errorf("tool config is not valid JSON: %w", domain.ErrInvalidRequest)
	}
	return nil
}

func cloneTool(tool domain.LocalTool) domain.LocalTool {
	out := tool
	if tool.Config != nil {
		out.Config = append(json.RawMessage(nil), tool.Config...)
	}
	return out
}
