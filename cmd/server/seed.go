package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/UkralStul/studyabroad-realtime/internal/service"
)

// fillWithMockData создает пару постов, чтобы на пустом in-memory
// сервере было что показать.
func fillWithMockData(ctx context.Context, forum *service.Forum, log logrus.FieldLogger) error {
	// 1. Обычный пост с комментариями
	post, err := forum.CreatePost(ctx, "student-1", service.CreatePostInput{
		Title:    "First week in Berlin",
		Content:  "Registered my address today. Ask me anything about the Anmeldung.",
		Category: "germany",
		Tags:     []string{"housing", "bureaucracy"},
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create post: %w", err)
	}
	if _, err := forum.AddComment(ctx, post.ID, "student-2", "How long did you wait for the appointment?"); err != nil {
		return fmt.Errorf("fillWithMockData: failed to create comment: %w", err)
	}

	// 2. Пост с опросом
	ends := time.Now().Add(7 * 24 * time.Hour)
	pollPost, err := forum.CreatePost(ctx, "counselor-1", service.CreatePostInput{
		Content:      "Planning the next webinar.",
		PollQuestion: "Which intake are you aiming for?",
		PollOptions:  []string{"Fall 2027", "Spring 2028", "Not sure yet"},
		PollEndsAt:   &ends,
	})
	if err != nil {
		return fmt.Errorf("fillWithMockData: failed to create poll post: %w", err)
	}

	log.WithFields(logrus.Fields{"post_id": post.ID, "poll_post_id": pollPost.ID}).Info("mock data filled")
	return nil
}
