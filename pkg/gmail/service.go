package gmail

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	emaildomain "jobhunt-backend/internal/email/domain"
	"jobhunt-backend/internal/errs"
	"jobhunt-backend/pkg/cursor"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Gmail quota costs per call, see
// https://developers.google.com/gmail/api/reference/quota
const (
	quotaUnitsGetProfile   = 1
	quotaUnitsHistoryList  = 2
	quotaUnitsMessagesList = 5
	quotaUnitsMessagesGet  = 5
	quotaUnitsStop         = 50
	quotaUnitsWatch        = 100

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond

	pageSize   = 100
	maxRetries = 4
)

const user = "me"

// NewLimiter returns a limiter sized to one mailbox's per-user quota.
func NewLimiter() *rate.Limiter {
	return rate.NewLimiter(rateLimitPerSecond, rateLimitBurst)
}

// Service is the Gmail implementation of emaildomain.MailProvider.
type Service struct {
	srv       *gmail.Service
	limiter   *rate.Limiter
	logger    *zap.Logger
	retryBase time.Duration
}

var _ emaildomain.MailProvider = (*Service)(nil)

func New(ctx context.Context, limiter *rate.Limiter, logger *zap.Logger, opts ...option.ClientOption) (*Service, error) {
	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create Gmail service")
	}
	if limiter == nil {
		limiter = NewLimiter()
	}
	return &Service{
		srv:       srv,
		limiter:   limiter,
		logger:    logger,
		retryBase: 500 * time.Millisecond,
	}, nil
}

func (s *Service) GetProfile(ctx context.Context) (*emaildomain.Profile, error) {
	var profile *gmail.Profile
	err := s.do(ctx, quotaUnitsGetProfile, "get profile", func() (err error) {
		profile, err = s.srv.Users.GetProfile(user).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &emaildomain.Profile{
		EmailAddress: profile.EmailAddress,
		Cursor:       cursor.FromUint(profile.HistoryId),
	}, nil
}

func (s *Service) ListMessages(ctx context.Context, query, pageToken string) (*emaildomain.MessagePage, error) {
	call := s.srv.Users.Messages.List(user).Context(ctx).MaxResults(pageSize)
	if query != "" {
		call = call.Q(query)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	var resp *gmail.ListMessagesResponse
	err := s.do(ctx, quotaUnitsMessagesList, "list messages", func() (err error) {
		resp, err = call.Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	page := &emaildomain.MessagePage{NextPageToken: resp.NextPageToken}
	for _, m := range resp.Messages {
		page.IDs = append(page.IDs, m.Id)
	}
	return page, nil
}

func (s *Service) GetMessage(ctx context.Context, id string) (*emaildomain.MailRecord, error) {
	call := s.srv.Users.Messages.Get(user, id).Context(ctx).
		Format("metadata").
		MetadataHeaders("Subject", "From")

	var msg *gmail.Message
	err := s.do(ctx, quotaUnitsMessagesGet, "get message "+id, func() (err error) {
		msg, err = call.Do()
		return err
	})
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, errors.Wrapf(errs.ErrNotFound, "message %s", id)
		}
		return nil, err
	}
	return convertMessage(msg), nil
}

func (s *Service) ListHistory(ctx context.Context, startCursor, pageToken string) (*emaildomain.HistoryPage, error) {
	start, err := strconv.ParseUint(strings.TrimSpace(startCursor), 10, 64)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrCursorExpired, "unusable cursor %q", startCursor)
	}

	call := s.srv.Users.History.List(user).Context(ctx).
		StartHistoryId(start).
		HistoryTypes("messageAdded").
		MaxResults(pageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	var resp *gmail.ListHistoryResponse
	err = s.do(ctx, quotaUnitsHistoryList, "list history", func() (err error) {
		resp, err = call.Do()
		return err
	})
	if err != nil {
		// Gmail answers 404 once a history id falls out of retention.
		if isStatus(err, http.StatusNotFound) {
			return nil, errors.Wrapf(errs.ErrCursorExpired, "history from %s", startCursor)
		}
		return nil, err
	}

	page := &emaildomain.HistoryPage{NextPageToken: resp.NextPageToken}
	// historyId is the mailbox head on every page. Only the last page may
	// claim it, or a failure on a later page would skip unread history.
	if resp.NextPageToken == "" {
		page.Cursor = cursor.FromUint(resp.HistoryId)
	}
	for _, h := range resp.History {
		rec := emaildomain.HistoryRecord{Cursor: cursor.FromUint(h.Id)}
		for _, added := range h.MessagesAdded {
			if added.Message == nil {
				continue
			}
			rec.AddedMessageIDs = append(rec.AddedMessageIDs, added.Message.Id)
		}
		page.Records = append(page.Records, rec)
	}
	return page, nil
}

func (s *Service) Watch(ctx context.Context, topic string) (*emaildomain.WatchResult, error) {
	// Clear any previous registration; Gmail allows one push client per user.
	if err := s.StopWatch(ctx); err != nil {
		s.logger.Debug("stop before watch failed", zap.Error(err))
	}

	req := &gmail.WatchRequest{
		TopicName: topic,
		LabelIds:  []string{"INBOX"},
	}

	var resp *gmail.WatchResponse
	err := s.do(ctx, quotaUnitsWatch, "watch mailbox", func() (err error) {
		resp, err = s.srv.Users.Watch(user, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("watch registered",
		zap.Uint64("history_id", resp.HistoryId),
		zap.Int64("expiration_ms", resp.Expiration))
	return &emaildomain.WatchResult{
		Cursor:    cursor.FromUint(resp.HistoryId),
		ExpiresAt: time.UnixMilli(resp.Expiration).UTC(),
	}, nil
}

func (s *Service) StopWatch(ctx context.Context) error {
	return s.do(ctx, quotaUnitsStop, "stop watch", func() error {
		return s.srv.Users.Stop(user).Context(ctx).Do()
	})
}

// do waits for quota, runs call and retries rate-limit and server errors
// with exponential backoff.
func (s *Service) do(ctx context.Context, units int, op string, call func() error) error {
	for attempt := 0; ; attempt++ {
		if err := s.limiter.WaitN(ctx, units); err != nil {
			return errors.Wrap(err, op)
		}

		err := call()
		if err == nil {
			return nil
		}

		var apiErr *googleapi.Error
		if !errors.As(err, &apiErr) {
			return errors.Wrap(err, op)
		}

		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
			if attempt >= maxRetries {
				return errors.Wrapf(errs.ErrTransientProvider, "%s: %v", op, err)
			}
			delay := s.retryBase << attempt
			s.logger.Debug("retrying gmail call",
				zap.String("op", op), zap.Int("code", apiErr.Code), zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), op)
			case <-time.After(delay):
			}
		case apiErr.Code == http.StatusUnauthorized:
			return errors.Wrapf(errs.ErrAuthRequired, "%s: %v", op, err)
		default:
			return errors.Wrap(err, op)
		}
	}
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func convertMessage(msg *gmail.Message) *emaildomain.MailRecord {
	rec := &emaildomain.MailRecord{
		ID:        msg.Id,
		ThreadID:  msg.ThreadId,
		Snippet:   msg.Snippet,
		Labels:    strings.Join(msg.LabelIds, ","),
		HistoryID: cursor.FromUint(msg.HistoryId),
	}
	if msg.InternalDate > 0 {
		rec.ReceivedAt = time.UnixMilli(msg.InternalDate).UTC()
	}
	if msg.Payload != nil {
		rec.Subject = getHeader(msg.Payload.Headers, "Subject")
		rec.Sender = getHeader(msg.Payload.Headers, "From")
	}
	return rec
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}
