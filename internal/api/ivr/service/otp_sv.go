package ivrService

import (
	"ProjectIVR/internal/api/ivr"
	"ProjectIVR/internal/callflow"
	"ProjectIVR/internal/entity"
	"ProjectIVR/internal/session"
	"ProjectIVR/pkg/bcrypt"
	contextPkg "ProjectIVR/pkg/context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const codeMessage = "Your verification code is %s. It expires in %d minutes."

// Verify is the one-time code webhook. The first hit issues a code to the
// caller's number; the next one carries the keyed digits.
func (s *ivrService) Verify(ctx context.Context, req ivr.WebhookRequest) (callflow.Response, error) {
	requestID := contextPkg.GetRequestID(ctx)
	prompts := s.machine.Prompts()

	cs, err := s.store.Get(ctx, req.CallSid)
	if errors.Is(err, session.ErrNotFound) {
		return callflow.Response{}, ivr.ErrCallNotFound
	}
	if err != nil {
		return callflow.Response{}, err
	}

	if cs.Verified {
		return s.machine.Resume(cs), nil
	}

	if cs.CallerID == "" || cs.CallerID == s.unknownCaller {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"call_sid":   req.CallSid,
		}).Warn("Cannot verify a caller without a number")
		return callflow.Response{}, ivr.ErrUnknownCaller
	}

	digits := strings.TrimSpace(req.Digits)
	if digits == "" {
		if _, err := s.IssueCode(ctx, cs.CallerID); err != nil {
			return callflow.Response{}, err
		}
		return callflow.Response{
			Say: []string{prompts.VerifyCodeSent},
			Gather: &callflow.Gather{
				Input:     callflow.InputDTMF,
				NumDigits: CodeDigits,
				Action:    callflow.ActionVerify,
				Prompt:    prompts.VerifyCode,
			},
			Hangup: true,
		}, nil
	}

	if err := s.VerifyCode(ctx, cs.CallerID, digits); err != nil {
		if !isCodeRejection(err) {
			return callflow.Response{}, err
		}
		s.finish(ctx, req.CallSid, true)
		return callflow.SayAndHangup(prompts.VerifyCodeInvalid, prompts.Goodbye), nil
	}

	if _, err := s.store.Update(ctx, req.CallSid, func(cs *entity.CallSession) error {
		cs.Verified = true
		return nil
	}); err != nil {
		return callflow.Response{}, err
	}

	resp, err := s.advance(ctx, req.CallSid, req.Input(entity.StageStart))
	if err != nil {
		return callflow.Response{}, err
	}
	resp.Say = append([]string{prompts.VerifyCodeOK}, resp.Say...)
	return resp, nil
}

func isCodeRejection(err error) bool {
	return errors.Is(err, ivr.ErrCodeInvalid) ||
		errors.Is(err, ivr.ErrCodeExpired) ||
		errors.Is(err, ivr.ErrCodeConsumed) ||
		errors.Is(err, ivr.ErrCodeNotFound)
}

// IssueCode stores a fresh hashed code for phoneNumber and sends it.
func (s *ivrService) IssueCode(ctx context.Context, phoneNumber string) (ivr.IssueCodeResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)
	now := s.now()

	code, err := s.utils.NewNumericCode(CodeDigits)
	if err != nil {
		return ivr.IssueCodeResponse{}, err
	}

	hash, err := s.hasher.Hash(code)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to hash one-time code")
		return ivr.IssueCodeResponse{}, err
	}

	id, err := s.utils.NewULIDFromTimestamp(now)
	if err != nil {
		return ivr.IssueCodeResponse{}, err
	}

	repo, err := s.repo.NewClient(ctx, false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return ivr.IssueCodeResponse{}, err
	}

	if err := repo.Codes.CreateCode(ctx, entity.OneTimeCode{
		ID:          id,
		PhoneNumber: phoneNumber,
		CodeHash:    hash,
		IssuedAt:    now,
	}); err != nil {
		return ivr.IssueCodeResponse{}, err
	}

	msg := fmt.Sprintf(codeMessage, code, int(entity.OneTimeCodeTTL.Minutes()))
	if err := s.sender.SendCode(ctx, phoneNumber, msg); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"phone_number": phoneNumber,
			"error":        err.Error(),
		}).Error("Failed to deliver one-time code")
		s.record("delivery_failed")
		return ivr.IssueCodeResponse{}, ivr.ErrCodeDelivery
	}

	s.record("issued")
	return ivr.IssueCodeResponse{
		PhoneNumber: phoneNumber,
		ExpiresAt:   now.Add(entity.OneTimeCodeTTL),
	}, nil
}

// VerifyCode checks code against the most recent code issued to
// phoneNumber and consumes it in the same transaction.
func (s *ivrService) VerifyCode(ctx context.Context, phoneNumber, code string) error {
	requestID := contextPkg.GetRequestID(ctx)
	now := s.now()

	repo, err := s.repo.NewClient(ctx, true)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return err
	}
	defer repo.Rollback()

	latest, err := repo.Codes.GetLatestCode(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, ivr.ErrCodeNotFound) {
			s.record("not_found")
		}
		return err
	}

	switch {
	case latest.Consumed:
		s.record("consumed")
		return ivr.ErrCodeConsumed
	case latest.Expired(now):
		s.record("expired")
		return ivr.ErrCodeExpired
	}

	if err := s.hasher.Compare(latest.CodeHash, code); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatch) {
			return err
		}
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"phone_number": phoneNumber,
		}).Warn("One-time code mismatch")
		s.record("invalid")
		return ivr.ErrCodeInvalid
	}

	if err := repo.Codes.ConsumeCode(ctx, latest.ID, now); err != nil {
		if errors.Is(err, ivr.ErrCodeConsumed) {
			s.record("consumed")
		}
		return err
	}

	if err := repo.Commit(); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit one-time code consumption")
		return err
	}

	s.record("verified")
	return nil
}

func (s *ivrService) record(result string) {
	if s.recorder != nil {
		s.recorder.OneTimeCode(result)
	}
}
