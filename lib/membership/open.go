// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package membership

import (
	"context"

	"github.com/yaswanth65/task3Backend/lib/topic"
)

// Open admits every task and conversation subscription.
type Open struct{}

func (Open) Authorize(_ context.Context, userID string, t topic.Topic) error {
	_, err := authorizeUserTopic(userID, t)
	return err
}
