package ivrService

import (
	"ProjectIVR/internal/api/calls"
	"ProjectIVR/internal/api/ivr"
	"ProjectIVR/internal/callflow"
	"ProjectIVR/internal/entity"
	"ProjectIVR/internal/extraction"
	"ProjectIVR/internal/session"
	"ProjectIVR/internal/transcript"
	contextPkg "ProjectIVR/pkg/context"
	"ProjectIVR/pkg/log"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Incoming is the entry webhook. It is also where an unanswered menu
// redirects to, which the state machine counts as a no-input retry.
func (s *ivrService) Incoming(ctx context.Context, req ivr.WebhookRequest) (callflow.Response, error) {
	requestID := contextPkg.GetRequestID(ctx)

	caller := strings.TrimSpace(req.From)
	if caller == "" {
		caller = s.unknownCaller
	}

	cs, created, err := s.store.GetOrCreate(ctx, req.CallSid, caller)
	if errors.Is(err, session.ErrNotFound) {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"call_sid":   req.CallSid,
		}).Warn("Entry webhook for a finished call")
		return callflow.Response{}, ivr.ErrCallNotFound
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"call_sid":   req.CallSid,
			"error":      err.Error(),
		}).Error("Failed to load call session")
		return callflow.Response{}, err
	}

	if created {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"call_sid":   req.CallSid,
			"caller":     caller,
		}).Info("Call started")
		for _, l := range s.lifecycle {
			l.CallStarted(req.CallSid)
		}
	}

	if s.requireVerification && !cs.Verified && cs.Stage == entity.StageStart {
		return callflow.Response{Redirect: callflow.ActionVerify}, nil
	}

	return s.advance(ctx, req.CallSid, req.Input(entity.StageStart))
}

func (s *ivrService) Menu(ctx context.Context, req ivr.WebhookRequest) (callflow.Response, error) {
	return s.advance(ctx, req.CallSid, req.Input(entity.StageMenu))
}

func (s *ivrService) Gather(ctx context.Context, stage entity.Stage, req ivr.WebhookRequest) (callflow.Response, error) {
	return s.advance(ctx, req.CallSid, req.Input(stage))
}

// Recording closes the script. A retried callback for a call that already
// finished gets the same goodbye.
func (s *ivrService) Recording(ctx context.Context, req ivr.WebhookRequest) (callflow.Response, error) {
	resp, err := s.advance(ctx, req.CallSid, req.Input(entity.StageRecording))
	if errors.Is(err, ivr.ErrCallNotFound) {
		return callflow.SayAndHangup(s.machine.Prompts().Goodbye), nil
	}
	return resp, err
}

// Status handles the provider's call status callback. A terminal status
// for a call that still has a live session means the caller hung up early.
func (s *ivrService) Status(ctx context.Context, req ivr.WebhookRequest) error {
	status := strings.ToLower(strings.TrimSpace(req.CallStatus))
	if _, ok := ivr.TerminalCallStatuses[status]; !ok {
		return nil
	}

	s.log.WithFields(logrus.Fields{
		"request_id":  contextPkg.GetRequestID(ctx),
		"call_sid":    req.CallSid,
		"call_status": status,
	}).Debug("Terminal call status received")

	s.finish(ctx, req.CallSid, true)
	return nil
}

// Expire is the janitor hook for stalled sessions. The store has already
// completed the session.
func (s *ivrService) Expire(ctx context.Context, cs entity.CallSession) {
	for _, l := range s.lifecycle {
		l.CallEnded(cs.CallID, true)
	}
	s.finalizeAsync(ctx, cs, true)
}

// advance runs one state machine step inside the session's update so the
// transcript turn, field updates and stage change land together.
func (s *ivrService) advance(ctx context.Context, callID string, in callflow.Input) (callflow.Response, error) {
	requestID := contextPkg.GetRequestID(ctx)

	var (
		t     callflow.Transition
		turn  entity.Turn
		added bool
	)
	_, err := s.store.Update(ctx, callID, func(cs *entity.CallSession) error {
		var err error
		t, err = s.machine.Step(*cs, in)
		if err != nil {
			return err
		}
		turn, added = transcript.Append(cs, t.From.String(), t.Turn, s.now())
		t.Apply(cs)
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, session.ErrNotFound):
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"call_sid":   callID,
			"stage":      in.Stage,
		}).Warn("Webhook for unknown or finished call")
		return callflow.Response{}, ivr.ErrCallNotFound
	case errors.Is(err, callflow.ErrStageMismatch):
		current, getErr := s.store.Get(ctx, callID)
		if getErr != nil {
			return callflow.Response{}, getErr
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"call_sid":   callID,
			"stage":      in.Stage,
			"expected":   current.Stage,
		}).Warn("Out of order webhook, repeating current prompt")
		return s.machine.Resume(current), nil
	default:
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"call_sid":   callID,
			"stage":      in.Stage,
			"error":      err.Error(),
		}).Error("Failed to advance call")
		return callflow.Response{}, err
	}

	if added {
		s.aggregator.Notify(callID, turn)
	}

	if t.Complete {
		s.finish(ctx, callID, t.Abandoned)
	}

	return t.Response, nil
}

// finish removes the live session and hands the final snapshot to the
// finaliser. Only the caller that actually completes the session does so.
func (s *ivrService) finish(ctx context.Context, callID string, abandoned bool) {
	final, err := s.store.Complete(ctx, callID)
	if errors.Is(err, session.ErrNotFound) {
		return
	}
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"call_sid":   callID,
			"error":      err.Error(),
		}).Error("Failed to complete call session")
		return
	}

	for _, l := range s.lifecycle {
		l.CallEnded(callID, abandoned)
	}
	s.finalizeAsync(ctx, final, abandoned)
}

// finalizeAsync runs Finalize detached from the webhook so the caller hears
// the goodbye without waiting on the language model.
func (s *ivrService) finalizeAsync(ctx context.Context, cs entity.CallSession, abandoned bool) {
	detached := contextPkg.Detach(ctx)
	requestID := contextPkg.GetRequestID(detached)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		c, cancel := context.WithTimeout(detached, s.finalizeTimeout)
		defer cancel()

		if err := s.Finalize(c, cs, abandoned); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"call_sid":   cs.CallID,
				"error":      err.Error(),
			}).Error("Failed to finalize call")
		}
	}()
}

// Finalize extracts structured fields from the finished call and writes
// the call record. It is the only write of a call to durable storage.
func (s *ivrService) Finalize(ctx context.Context, cs entity.CallSession, abandoned bool) error {
	requestID := contextPkg.GetRequestID(ctx)

	if s.transcriber != nil && cs.Fields.RecordingURL != "" {
		text, err := s.transcriber.TranscribeURL(ctx, cs.Fields.RecordingURL)
		if err != nil {
			log.WithRequestID(s.log, ctx).WithFields(logrus.Fields{
				"call_sid": cs.CallID,
				"error":    err.Error(),
			}).Warn("Failed to transcribe recording")
		} else if turn, ok := transcript.Append(&cs, recordingTurnLabel, text, s.now()); ok {
			s.aggregator.Notify(cs.CallID, turn)
		}
	}

	started := s.now()
	result := s.extractor.Extract(ctx, transcript.Join(cs.Turns))
	if s.recorder != nil {
		s.recorder.ObserveExtraction(s.now().Sub(started))
	}

	completedAt := s.now()
	record := extraction.Merge(cs, result, completedAt)
	if abandoned {
		record.Status = entity.CallStatusAbandoned
	}

	id, err := s.utils.NewULIDFromTimestamp(completedAt)
	if err != nil {
		return err
	}
	record.ID = id

	if err := s.calls.SaveCall(ctx, record); err != nil {
		if errors.Is(err, calls.ErrCallAlreadyRecorded) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"call_sid":   cs.CallID,
			}).Warn("Call record already written")
			return nil
		}
		return err
	}

	s.log.WithFields(logrus.Fields{
		"request_id":     requestID,
		"call_sid":       cs.CallID,
		"record_id":      record.ID,
		"status":         record.Status,
		"consent_type":   record.ConsentType,
		"consent_status": record.ConsentStatus,
	}).Info("Call record saved")

	return nil
}
