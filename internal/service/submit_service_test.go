package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ndewijer/note-kfet-kiosk/internal/banner"
	"github.com/ndewijer/note-kfet-kiosk/internal/model"
	"github.com/ndewijer/note-kfet-kiosk/internal/service"
	"github.com/ndewijer/note-kfet-kiosk/internal/testutil"
)

func consumption(payer model.AccountSummary, item model.ItemTemplate, quantity int) model.SubmissionRequest {
	return model.SubmissionRequest{
		SourceAccountID:      payer.ID,
		SourceAlias:          payer.DisplayName,
		DestinationAccountID: item.DestinationAccountID,
		DestinationAlias:     item.Name,
		Quantity:             quantity,
		UnitAmountCents:      item.UnitPriceCents,
		ReasonText:           item.Reason(),
		TransactionKindTag:   item.TransactionTypeTag,
		PolymorphicCtype:     item.PolymorphicCtype,
		TemplateID:           item.ID,
		Valid:                true,
		Payer:                &payer,
	}
}

func transfer(src, dst model.AccountSummary, quantity int, cents int64) model.SubmissionRequest {
	return model.SubmissionRequest{
		SourceAccountID:      src.ID,
		SourceAlias:          src.DisplayName,
		DestinationAccountID: dst.ID,
		DestinationAlias:     dst.DisplayName,
		Quantity:             quantity,
		UnitAmountCents:      cents,
		ReasonText:           "Pizza",
		TransactionKindTag:   model.KindTransaction,
		PolymorphicCtype:     12,
		Valid:                true,
		Payer:                &src,
		Destination:          &dst,
	}
}

// TestSubmitService_SubmitBatch tests the per-pair state machine.
//
// WHY: Every pair must settle exactly once. A rejected pair is recorded once
// as invalid and never retried further; transport failures are not retried at
// all. These rules keep the ledger free of duplicate debits.
func TestSubmitService_SubmitBatch(t *testing.T) {
	coffee := testutil.NewButton(7, "Coffee", 150).Build()

	t.Run("commits a consumption without advisory banner when the balance stays positive", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}
		payer := testutil.NewAccount(1, "alice").WithBalance(1000).Build()

		result := svc.SubmitBatch(t.Context(), []model.SubmissionRequest{consumption(payer, coffee, 2)}, notes)

		if got := result.Count(service.StateCommitted); got != 1 {
			t.Fatalf("Expected 1 committed pair, got %d", got)
		}
		if client.TransactionCount() != 1 {
			t.Errorf("Expected 1 request, got %d", client.TransactionCount())
		}
		if n := len(notes.Notices()); n != 0 {
			t.Errorf("Expected no banner, got %v", notes.Notices())
		}
		sent := client.RecordedTransactions()[0]
		if sent.Quantity != 2 || sent.UnitAmountCents != 150 || sent.TemplateID != 7 {
			t.Errorf("Unexpected request %+v", sent)
		}
	})

	t.Run("warns when the projected balance goes negative", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}
		alice := testutil.NewAccount(1, "alice").WithBalance(200).Build()
		bob := testutil.NewAccount(2, "bob").Build()

		result := svc.SubmitBatch(t.Context(), []model.SubmissionRequest{transfer(alice, bob, 1, 300)}, notes)

		if result.Count(service.StateCommitted) != 1 {
			t.Fatalf("Expected committed pair, got %+v", result.Outcomes)
		}
		if notes.Count(banner.Warning) != 1 {
			t.Errorf("Expected 1 warning banner, got %v", notes.Notices())
		}
		if notes.Count(banner.Danger) != 0 || notes.Count(banner.Success) != 0 {
			t.Errorf("Expected only the warning banner, got %v", notes.Notices())
		}
	})

	t.Run("emits a danger banner at the danger threshold", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}
		alice := testutil.NewAccount(1, "alice").WithBalance(-4000).Build()
		bob := testutil.NewAccount(2, "bob").Build()

		svc.SubmitBatch(t.Context(), []model.SubmissionRequest{transfer(alice, bob, 1, 1000)}, notes)

		if !notes.Contains(banner.Danger, "very negative") {
			t.Errorf("Expected a very negative banner, got %v", notes.Notices())
		}
	})

	t.Run("announces a successful transfer", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}
		alice := testutil.NewAccount(1, "alice").WithBalance(5000).Build()
		bob := testutil.NewAccount(2, "bob").Build()

		svc.SubmitBatch(t.Context(), []model.SubmissionRequest{transfer(alice, bob, 2, 250)}, notes)

		if !notes.Contains(banner.Success, "Transfer of 5 € from alice to bob succeed!") {
			t.Errorf("Expected a success banner, got %v", notes.Notices())
		}
	})

	t.Run("issues every pair of a cross product in order", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}
		alice := testutil.NewAccount(1, "alice").WithBalance(10000).Build()
		bob := testutil.NewAccount(2, "bob").WithBalance(10000).Build()
		tea := testutil.NewButton(8, "Tea", 100).Build()

		reqs := []model.SubmissionRequest{
			consumption(alice, coffee, 2),
			consumption(alice, tea, 1),
			consumption(bob, coffee, 2),
			consumption(bob, tea, 1),
		}
		result := svc.SubmitBatch(t.Context(), reqs, notes)

		if result.Count(service.StateCommitted) != 4 {
			t.Fatalf("Expected 4 committed pairs, got %+v", result.Outcomes)
		}
		sent := client.RecordedTransactions()
		if len(sent) != 4 {
			t.Fatalf("Expected 4 requests, got %d", len(sent))
		}
		for i, req := range reqs {
			if sent[i].SourceAccountID != req.SourceAccountID || sent[i].TemplateID != req.TemplateID {
				t.Errorf("Request %d issued out of order: %+v", i, sent[i])
			}
		}
	})

	t.Run("records a rejected pair once as invalid", func(t *testing.T) {
		client := testutil.NewMockNoteClient().RejectValid()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}
		payer := testutil.NewAccount(1, "alice").WithBalance(100).Build()

		result := svc.SubmitBatch(t.Context(), []model.SubmissionRequest{consumption(payer, coffee, 1)}, notes)

		out := result.Outcomes[0]
		if out.State != service.StateRecordedInvalid {
			t.Fatalf("Expected recorded_invalid, got %s", out.State)
		}
		if out.Attempts != 2 {
			t.Errorf("Expected 2 attempts, got %d", out.Attempts)
		}
		sent := client.RecordedTransactions()
		if len(sent) != 2 {
			t.Fatalf("Expected 2 requests, got %d", len(sent))
		}
		if sent[1].Valid || sent[1].InvalidityReason != "insufficient balance" {
			t.Errorf("Expected invalid fallback, got %+v", sent[1])
		}
		if !notes.Contains(banner.Danger, "insufficient balance") {
			t.Errorf("Expected insufficient balance banner, got %v", notes.Notices())
		}
	})

	t.Run("fails without a third request when the fallback is rejected", func(t *testing.T) {
		client := testutil.NewMockNoteClient().RejectAll()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}
		alice := testutil.NewAccount(1, "alice").Build()
		bob := testutil.NewAccount(2, "bob").Build()

		result := svc.SubmitBatch(t.Context(), []model.SubmissionRequest{transfer(alice, bob, 1, 100)}, notes)

		if result.Outcomes[0].State != service.StateFailed {
			t.Fatalf("Expected failed, got %s", result.Outcomes[0].State)
		}
		if client.TransactionCount() != 2 {
			t.Errorf("Expected exactly 2 requests, got %d", client.TransactionCount())
		}
		found := false
		for _, n := range notes.Notices() {
			if n.Level == banner.Danger && n.TTL == 0 {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected a sticky danger banner, got %v", notes.Notices())
		}
	})

	t.Run("does not fall back on transport errors", func(t *testing.T) {
		client := testutil.NewMockNoteClient().WithError(errors.New("connection refused"))
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}
		payer := testutil.NewAccount(1, "alice").WithBalance(1000).Build()

		result := svc.SubmitBatch(t.Context(), []model.SubmissionRequest{consumption(payer, coffee, 1)}, notes)

		if result.Outcomes[0].State != service.StateFailed {
			t.Fatalf("Expected failed, got %s", result.Outcomes[0].State)
		}
		if client.TransactionCount() != 1 {
			t.Errorf("Expected 1 request, got %d", client.TransactionCount())
		}
		if !notes.Contains(banner.Danger, "connection refused") {
			t.Errorf("Expected the transport error surfaced, got %v", notes.Notices())
		}
	})

	t.Run("skips a transfer to oneself", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}
		alice := testutil.NewAccount(1, "alice").WithBalance(1000).Build()

		result := svc.SubmitBatch(t.Context(), []model.SubmissionRequest{transfer(alice, alice, 1, 100)}, notes)

		if result.Outcomes[0].State != service.StateSkipped {
			t.Fatalf("Expected skipped, got %s", result.Outcomes[0].State)
		}
		if client.TransactionCount() != 0 {
			t.Errorf("Expected no request, got %d", client.TransactionCount())
		}
		if notes.Count(banner.Warning) != 1 {
			t.Errorf("Expected 1 warning banner, got %v", notes.Notices())
		}
	})

	t.Run("warns about expired memberships", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}
		alice := testutil.NewAccount(1, "alice").WithBalance(5000).Expired().Build()
		bob := testutil.NewAccount(2, "bob").Expired().Build()

		svc.SubmitBatch(t.Context(), []model.SubmissionRequest{transfer(alice, bob, 1, 100)}, notes)

		if !notes.Contains(banner.Danger, "emitter note alice is no more a BDE member") {
			t.Errorf("Expected emitter membership banner, got %v", notes.Notices())
		}
		if !notes.Contains(banner.Danger, "destination note bob is no more a BDE member") {
			t.Errorf("Expected destination membership banner, got %v", notes.Notices())
		}
	})

	t.Run("settles every pair with concurrent issuance", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		cfg := testutil.TestConfig().Submit
		cfg.MaxInFlight = 4
		svc := service.NewSubmitService(client, cfg, nil)
		notes := &testutil.RecordingNotifier{}

		var reqs []model.SubmissionRequest
		for i := 1; i <= 10; i++ {
			payer := testutil.NewAccount(i, testutil.MakeAlias("payer")).WithBalance(10000).Build()
			reqs = append(reqs, consumption(payer, coffee, 1))
		}
		result := svc.SubmitBatch(t.Context(), reqs, notes)

		if result.Count(service.StateCommitted) != 10 {
			t.Fatalf("Expected 10 committed pairs, got %+v", result.Outcomes)
		}
		for i, out := range result.Outcomes {
			if out.Request.SourceAccountID != reqs[i].SourceAccountID {
				t.Errorf("Outcome %d does not match its request", i)
			}
		}
	})
}

// TestSubmitService_Detached tests that a batch outlives the request that
// started it.
//
// WHY: The kiosk page may reload or lose its connection while a batch is in
// flight. The note server has usually committed the pairs by then, so a
// cancelled caller must neither abort them nor report them as failed. Only the
// submit timeout bounds a batch.
func TestSubmitService_Detached(t *testing.T) {
	coffee := testutil.NewButton(7, "Coffee", 150).Build()

	t.Run("commits every pair after the caller went away", func(t *testing.T) {
		client := testutil.NewMockNoteClient().WithLatency(100 * time.Millisecond)
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}

		ctx, cancel := context.WithCancel(t.Context())
		timer := time.AfterFunc(20*time.Millisecond, cancel)
		defer timer.Stop()

		result := svc.SubmitBatch(ctx, []model.SubmissionRequest{
			consumption(testutil.NewAccount(1, "alice").WithBalance(1000).Build(), coffee, 1),
			consumption(testutil.NewAccount(2, "bob").WithBalance(1000).Build(), coffee, 1),
		}, notes)

		if ctx.Err() == nil {
			t.Fatal("Expected the caller context to be cancelled during the batch")
		}
		if got := result.Count(service.StateCommitted); got != 2 {
			t.Errorf("Expected 2 committed pairs, got %+v", result.Outcomes)
		}
		if client.TransactionCount() != 2 {
			t.Errorf("Expected both pairs issued, got %d requests", client.TransactionCount())
		}
		if n := notes.Count(banner.Danger); n != 0 {
			t.Errorf("Expected no danger banner, got %v", notes.Notices())
		}
	})

	t.Run("commits a credit after the caller went away", func(t *testing.T) {
		client := testutil.NewMockNoteClient().WithLatency(100 * time.Millisecond)
		svc := testutil.NewTestSubmitService(t, client)
		user := testutil.NewAccount(3, "alice").Build()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		out := svc.SubmitSpecial(ctx, model.SubmissionRequest{
			SourceAccountID:      1,
			DestinationAccountID: user.ID,
			Quantity:             1,
			UnitAmountCents:      2000,
			TransactionKindTag:   model.KindSpecialTransaction,
			Valid:                true,
			Destination:          &user,
		}, &testutil.RecordingNotifier{})

		if out.State != service.StateCommitted {
			t.Errorf("Expected committed, got %s (%s)", out.State, out.Error)
		}
	})

	t.Run("the submit timeout still bounds the batch", func(t *testing.T) {
		client := testutil.NewMockNoteClient().WithLatency(time.Second)
		cfg := testutil.TestConfig().Submit
		cfg.Timeout = 20 * time.Millisecond
		svc := service.NewSubmitService(client, cfg, nil)
		notes := &testutil.RecordingNotifier{}

		result := svc.SubmitBatch(t.Context(), []model.SubmissionRequest{
			consumption(testutil.NewAccount(1, "alice").WithBalance(1000).Build(), coffee, 1),
		}, notes)

		if got := result.Count(service.StateFailed); got != 1 {
			t.Errorf("Expected the pair to fail on timeout, got %+v", result.Outcomes)
		}
		if client.TransactionCount() != 1 {
			t.Errorf("Expected no fallback after a timeout, got %d requests", client.TransactionCount())
		}
	})
}

// TestSubmitService_SubmitSpecial tests credit and debit legs.
//
// WHY: Special transactions move real money in or out; a rejection must be
// reported and never recorded as an invalid transaction.
func TestSubmitService_SubmitSpecial(t *testing.T) {
	credit := func(user model.AccountSummary) model.SubmissionRequest {
		return model.SubmissionRequest{
			SourceAccountID:      1,
			DestinationAccountID: user.ID,
			DestinationAlias:     user.DisplayName,
			Quantity:             1,
			UnitAmountCents:      2000,
			ReasonText:           "Crédit espèces",
			TransactionKindTag:   model.KindSpecialTransaction,
			PolymorphicCtype:     14,
			Valid:                true,
			LastName:             "Doe",
			FirstName:            "Alice",
			Destination:          &user,
		}
	}

	t.Run("announces a successful credit", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}

		out := svc.SubmitSpecial(t.Context(), credit(testutil.NewAccount(3, "alice").Build()), notes)

		if out.State != service.StateCommitted {
			t.Fatalf("Expected committed, got %s", out.State)
		}
		if !notes.Contains(banner.Success, "Credit/debit succeed!") {
			t.Errorf("Expected success banner, got %v", notes.Notices())
		}
	})

	t.Run("never falls back on rejection", func(t *testing.T) {
		client := testutil.NewMockNoteClient().RejectAll()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}

		out := svc.SubmitSpecial(t.Context(), credit(testutil.NewAccount(3, "alice").Build()), notes)

		if out.State != service.StateFailed {
			t.Fatalf("Expected failed, got %s", out.State)
		}
		if client.TransactionCount() != 1 {
			t.Errorf("Expected 1 request, got %d", client.TransactionCount())
		}
		if !notes.Contains(banner.Danger, "Credit/debit failed: Solde insuffisant") {
			t.Errorf("Expected failure banner, got %v", notes.Notices())
		}
	})

	t.Run("warns when the credited member is no longer a member", func(t *testing.T) {
		client := testutil.NewMockNoteClient()
		svc := testutil.NewTestSubmitService(t, client)
		notes := &testutil.RecordingNotifier{}

		svc.SubmitSpecial(t.Context(), credit(testutil.NewAccount(3, "alice").Expired().Build()), notes)

		if !notes.Contains(banner.Danger, "alice is no more a BDE member") {
			t.Errorf("Expected membership banner, got %v", notes.Notices())
		}
	})
}
