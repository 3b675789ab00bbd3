package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/mcoot/portfolio-leaderboard/internal/model"
	"github.com/mcoot/portfolio-leaderboard/internal/storage"
)

// Subscribe registers a subscriber on the shared listener, starting it on first use
func (s *Storage) Subscribe(ctx context.Context) (storage.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, model.ErrStoreClosed
	}
	if s.listener == nil {
		if err := s.startListener(); err != nil {
			return nil, err
		}
	}
	return s.fanout.Subscribe(ctx), nil
}

// startListener must be called with s.mu held
func (s *Storage) startListener() error {
	listener := pq.NewListener(s.cfg.URL, s.cfg.MinReconnectInterval, s.cfg.MaxReconnectInterval, s.onListenerEvent)
	// Listen blocks until the server acknowledges, so no later write is missed
	if err := listener.Listen(NotifyChannel); err != nil {
		_ = listener.Close()
		return err
	}

	s.listener = listener
	s.relayWG.Add(1)
	go s.relay(listener)

	s.logger.Info("listening for player changes", slog.String("channel", NotifyChannel))
	return nil
}

// relay forwards notifications for this store's schema until the listener closes
func (s *Storage) relay(listener *pq.Listener) {
	defer s.relayWG.Done()

	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = DefaultConfig().PingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// Reconnected; anything sent while disconnected is lost
				s.fanout.Publish(model.NewChangeEvent(model.ChangeResync, "", time.Now().UTC()))
				continue
			}
			s.handleNotification(n)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					s.logger.Warn("listener ping failed", slog.String("error", err.Error()))
				}
			}()
		}
	}
}

func (s *Storage) handleNotification(n *pq.Notification) {
	note, ev, err := storage.DecodeNotification([]byte(n.Extra))
	if err != nil {
		s.logger.Warn("dropping malformed notification",
			slog.String("channel", n.Channel),
			slog.String("error", err.Error()),
		)
		return
	}
	// Several schemas may share one database and one channel
	if note.Schema != s.cfg.Schema || note.Table != model.PlayersTable {
		return
	}
	s.fanout.Publish(ev)
}

func (s *Storage) onListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		s.logger.Debug("listener connected")
	case pq.ListenerEventDisconnected:
		s.logger.Warn("listener disconnected", slog.Any("error", err))
	case pq.ListenerEventReconnected:
		s.logger.Info("listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		s.logger.Warn("listener connection attempt failed", slog.Any("error", err))
	}
}
