// Package chat implements plan-aware persistence for threads and messages.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	dbutil "github.com/edchat-io/edchat/internal/db"
	"github.com/edchat-io/edchat/internal/models"
	"github.com/edchat-io/edchat/internal/plan"
	"gorm.io/gorm"
)

// Attachment describes stored image metadata attached to a message.
type Attachment struct {
	URL       string // Public URL of the stored object.
	MIMEType  string // Normalized MIME type.
	SizeBytes int64  // Object size in bytes.
}

// MessageInput is one entry of a legacy bulk save.
type MessageInput struct {
	Role    string
	Content string
}

// Service persists threads and messages with plan limit enforcement.
type Service struct {
	db *gorm.DB
}

// NewService constructs a Service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// validRole reports whether the role is one of user|assistant|system.
func validRole(role string) bool {
	switch role {
	case models.RoleUser, models.RoleAssistant, models.RoleSystem:
		return true
	default:
		return false
	}
}

// lockOwner loads the owning user under a row lock so plan checks within
// the transaction cannot race concurrent writers.
func lockOwner(tx *gorm.DB, ownerID uint64) (*models.User, error) {
	var owner models.User
	if errFind := dbutil.RowLock(tx).First(&owner, ownerID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("chat: load owner: %w", errFind)
	}
	return &owner, nil
}

// lockOwnedThread loads a thread under a row lock, scoped to its owner.
// A missing thread and a foreign thread are indistinguishable to the caller.
func lockOwnedThread(tx *gorm.DB, threadID, ownerID uint64) (*models.Thread, error) {
	var thread models.Thread
	errFind := dbutil.RowLock(tx).
		Where("id = ? AND user_id = ?", threadID, ownerID).
		First(&thread).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("chat: load thread: %w", errFind)
	}
	return &thread, nil
}

// checkThreadCap enforces the per-user thread limit inside tx.
func checkThreadCap(tx *gorm.DB, owner *models.User) error {
	limits := plan.EffectiveLimits(owner)
	if limits.MaxThreads <= 0 {
		return nil
	}
	var count int64
	if errCount := tx.Model(&models.Thread{}).
		Where("user_id = ?", owner.ID).
		Count(&count).Error; errCount != nil {
		return fmt.Errorf("chat: count threads: %w", errCount)
	}
	if count >= int64(limits.MaxThreads) {
		return &PlanLimitError{Code: CodeMaxChats, Limit: limits.MaxThreads}
	}
	return nil
}

// checkMessageCap enforces the per-thread message limit inside tx.
// System messages never count toward the cap.
func checkMessageCap(tx *gorm.DB, owner *models.User, threadID uint64, role string) error {
	if role == models.RoleSystem {
		return nil
	}
	limits := plan.EffectiveLimits(owner)
	if limits.MaxMessagesPerThread <= 0 {
		return nil
	}
	var count int64
	if errCount := tx.Model(&models.Message{}).
		Where("thread_id = ? AND role IN ?", threadID, []string{models.RoleUser, models.RoleAssistant}).
		Count(&count).Error; errCount != nil {
		return fmt.Errorf("chat: count messages: %w", errCount)
	}
	if count >= int64(limits.MaxMessagesPerThread) {
		return &PlanLimitError{Code: CodeMaxMessages, Limit: limits.MaxMessagesPerThread}
	}
	return nil
}

// CreateThread creates an empty thread for the owner, optionally titled.
func (s *Service) CreateThread(ctx context.Context, ownerID uint64, title *string) (*models.Thread, error) {
	var created *models.Thread
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, errOwner := lockOwner(tx, ownerID)
		if errOwner != nil {
			return errOwner
		}
		if errCap := checkThreadCap(tx, owner); errCap != nil {
			return errCap
		}

		thread := models.Thread{UserID: ownerID}
		if title != nil {
			if trimmed := strings.TrimSpace(*title); trimmed != "" {
				thread.Title = &trimmed
			}
		}
		if errCreate := tx.Create(&thread).Error; errCreate != nil {
			return fmt.Errorf("chat: create thread: %w", errCreate)
		}
		created = &thread
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return created, nil
}

// CreateThreadWithFirstMessage atomically creates a thread and its first
// user message, titling the thread from that message. A failure anywhere
// rolls back the whole unit so no orphan thread survives.
func (s *Service) CreateThreadWithFirstMessage(ctx context.Context, ownerID uint64, content string) (*models.Thread, *models.Message, error) {
	var (
		createdThread  *models.Thread
		createdMessage *models.Message
	)
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, errOwner := lockOwner(tx, ownerID)
		if errOwner != nil {
			return errOwner
		}
		if errCap := checkThreadCap(tx, owner); errCap != nil {
			return errCap
		}

		title := deriveTitle(content)
		thread := models.Thread{UserID: ownerID, Title: &title}
		if errCreate := tx.Create(&thread).Error; errCreate != nil {
			return fmt.Errorf("chat: create thread: %w", errCreate)
		}

		message := models.Message{ThreadID: thread.ID, Role: models.RoleUser, Content: content}
		if errCreate := tx.Create(&message).Error; errCreate != nil {
			return fmt.Errorf("chat: create first message: %w", errCreate)
		}

		createdThread = &thread
		createdMessage = &message
		return nil
	})
	if errTx != nil {
		return nil, nil, errTx
	}
	return createdThread, createdMessage, nil
}

// AppendMessage appends a message to an owned thread, enforcing the plan
// message cap and applying the one-way title rule.
func (s *Service) AppendMessage(ctx context.Context, threadID, ownerID uint64, role, content string) (*models.Message, error) {
	return s.append(ctx, threadID, ownerID, role, content, nil)
}

// AppendImageMessage appends a message carrying an image attachment. An
// image-only message (empty text after normalization) never sets the title.
func (s *Service) AppendImageMessage(ctx context.Context, threadID, ownerID uint64, role, content string, att Attachment) (*models.Message, error) {
	return s.append(ctx, threadID, ownerID, role, content, &att)
}

func (s *Service) append(ctx context.Context, threadID, ownerID uint64, role, content string, att *Attachment) (*models.Message, error) {
	if !validRole(role) {
		return nil, ErrInvalidRole
	}

	var created *models.Message
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		thread, errThread := lockOwnedThread(tx, threadID, ownerID)
		if errThread != nil {
			return errThread
		}
		owner, errOwner := lockOwner(tx, ownerID)
		if errOwner != nil {
			return errOwner
		}
		if errCap := checkMessageCap(tx, owner, threadID, role); errCap != nil {
			return errCap
		}

		// Title decision needs the pre-insert count of user messages that
		// could have titled the thread. Image-only messages carry no text
		// and never title, so they must not consume the first-message slot.
		setTitle := false
		if role == models.RoleUser && titleUnset(thread.Title) {
			var priorUser int64
			if errCount := tx.Model(&models.Message{}).
				Where("thread_id = ? AND role = ? AND TRIM(content) <> ''", threadID, models.RoleUser).
				Count(&priorUser).Error; errCount != nil {
				return fmt.Errorf("chat: count user messages: %w", errCount)
			}
			if priorUser == 0 {
				if att == nil {
					setTitle = true
				} else if normalizeContent(content) != "" {
					// Image messages only title the thread when they carry text.
					setTitle = true
				}
			}
		}

		message := models.Message{ThreadID: threadID, Role: role, Content: content}
		if att != nil {
			message.ImageURL = &att.URL
			message.ImageMIMEType = &att.MIMEType
			message.ImageSizeBytes = &att.SizeBytes
		}
		if errCreate := tx.Create(&message).Error; errCreate != nil {
			return fmt.Errorf("chat: create message: %w", errCreate)
		}

		updates := map[string]any{"updated_at": time.Now().UTC()}
		if setTitle {
			updates["title"] = deriveTitle(content)
		}
		if errUpdate := tx.Model(&models.Thread{}).
			Where("id = ?", threadID).
			Updates(updates).Error; errUpdate != nil {
			return fmt.Errorf("chat: bump thread: %w", errUpdate)
		}

		created = &message
		return nil
	})
	if errTx != nil {
		return nil, errTx
	}
	return created, nil
}

// ReplaceMessages deletes all messages of an owned thread and inserts the
// provided ordered list. Title logic is deliberately not re-run; this is
// the legacy bulk save path.
func (s *Service) ReplaceMessages(ctx context.Context, threadID, ownerID uint64, msgs []MessageInput) error {
	for _, m := range msgs {
		if !validRole(m.Role) {
			return ErrInvalidRole
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, errThread := lockOwnedThread(tx, threadID, ownerID); errThread != nil {
			return errThread
		}

		if errDelete := tx.Where("thread_id = ?", threadID).
			Delete(&models.Message{}).Error; errDelete != nil {
			return fmt.Errorf("chat: delete messages: %w", errDelete)
		}

		// Spread creation times so ordering survives timestamp granularity.
		base := time.Now().UTC()
		for i, m := range msgs {
			message := models.Message{
				ThreadID:  threadID,
				Role:      m.Role,
				Content:   m.Content,
				CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			}
			if errCreate := tx.Create(&message).Error; errCreate != nil {
				return fmt.Errorf("chat: insert message %d: %w", i, errCreate)
			}
		}

		if errUpdate := tx.Model(&models.Thread{}).
			Where("id = ?", threadID).
			Update("updated_at", time.Now().UTC()).Error; errUpdate != nil {
			return fmt.Errorf("chat: bump thread: %w", errUpdate)
		}
		return nil
	})
}

// GetThread returns an owned thread or ErrThreadNotFound.
func (s *Service) GetThread(ctx context.Context, threadID, ownerID uint64) (*models.Thread, error) {
	var thread models.Thread
	errFind := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", threadID, ownerID).
		First(&thread).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("chat: load thread: %w", errFind)
	}
	return &thread, nil
}

// ListThreads returns the owner's threads, most recently updated first,
// optionally filtered by grouping tag.
func (s *Service) ListThreads(ctx context.Context, ownerID uint64, groupTag *string) ([]models.Thread, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("updated_at DESC, id DESC")
	if groupTag != nil && strings.TrimSpace(*groupTag) != "" {
		q = q.Where("group_tag = ?", strings.TrimSpace(*groupTag))
	}

	var threads []models.Thread
	if errFind := q.Find(&threads).Error; errFind != nil {
		return nil, fmt.Errorf("chat: list threads: %w", errFind)
	}
	return threads, nil
}

// DeleteThread removes an owned thread and its messages.
func (s *Service) DeleteThread(ctx context.Context, threadID, ownerID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, errThread := lockOwnedThread(tx, threadID, ownerID); errThread != nil {
			return errThread
		}
		if errDelete := tx.Where("thread_id = ?", threadID).
			Delete(&models.Message{}).Error; errDelete != nil {
			return fmt.Errorf("chat: delete messages: %w", errDelete)
		}
		if errDelete := tx.Delete(&models.Thread{}, threadID).Error; errDelete != nil {
			return fmt.Errorf("chat: delete thread: %w", errDelete)
		}
		return nil
	})
}

// Messages returns all messages of an owned thread, oldest first.
func (s *Service) Messages(ctx context.Context, threadID, ownerID uint64) ([]models.Message, error) {
	if _, errThread := s.GetThread(ctx, threadID, ownerID); errThread != nil {
		return nil, errThread
	}
	var messages []models.Message
	if errFind := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error; errFind != nil {
		return nil, fmt.Errorf("chat: list messages: %w", errFind)
	}
	return messages, nil
}

// ContextMessages returns the messages fed to inference, oldest first.
// Base-plan threads are truncated to the most recent context-window
// messages; nothing persisted is mutated.
func (s *Service) ContextMessages(ctx context.Context, threadID, ownerID uint64) ([]models.Message, error) {
	var owner models.User
	if errFind := s.db.WithContext(ctx).First(&owner, ownerID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("chat: load owner: %w", errFind)
	}

	messages, errMessages := s.Messages(ctx, threadID, ownerID)
	if errMessages != nil {
		return nil, errMessages
	}

	limits := plan.EffectiveLimits(&owner)
	if limits.ContextWindow > 0 && len(messages) > limits.ContextWindow {
		messages = messages[len(messages)-limits.ContextWindow:]
	}
	return messages, nil
}
