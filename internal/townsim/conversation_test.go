package townsim

import (
	"testing"
	"time"
)

func TestConversationStateMachineHappyPath(t *testing.T) {
	now := time.Now()
	initiator, invitee := NewPlayerID(), NewPlayerID()
	conv := NewConversation(NewConversationID(), initiator, invitee, now)

	if conv.State != ConversationInvited {
		t.Fatalf("expected a new conversation to start invited, got %s", conv.State)
	}
	if !conv.Includes(initiator) || !conv.Includes(invitee) {
		t.Fatal("expected Includes to report both participants")
	}

	conv.BeginWalkingOver()
	if conv.State != ConversationWalkingOver {
		t.Fatalf("expected walkingOver, got %s", conv.State)
	}

	conv.BeginParticipating(now)
	if conv.State != ConversationParticipating {
		t.Fatalf("expected participating, got %s", conv.State)
	}

	if !conv.EligibleToSpeak(initiator, now) {
		t.Fatal("the initiator should be eligible to speak first with no messages yet")
	}
	if conv.EligibleToSpeak(invitee, now) {
		t.Fatal("the invitee should not be eligible to speak before the initiator's opener, absent the awkward timeout")
	}

	msgUUID, ok := conv.AcquireTypingLock(initiator, now)
	if !ok || msgUUID == "" {
		t.Fatal("expected the typing lock to be acquired with a fresh message uuid")
	}
	if _, ok := conv.AcquireTypingLock(invitee, now); ok {
		t.Fatal("a second participant must not acquire an already-held typing lock")
	}

	if !conv.AddLine(initiator, "hello", 1, now) {
		t.Fatal("expected AddLine to succeed for the lock holder")
	}
	if conv.Typing.Held {
		t.Fatal("AddLine should release the typing lock")
	}
	last, ok := conv.LastMessage()
	if !ok || last.Text != "hello" {
		t.Fatal("expected the last message to be retrievable")
	}

	if conv.EligibleToSpeak(initiator, now) {
		t.Fatal("the speaker should not be immediately eligible to speak again")
	}
	later := now.Add(MessageCooldown + time.Second)
	if !conv.EligibleToSpeak(invitee, later) {
		t.Fatal("the other participant should become eligible after MESSAGE_COOLDOWN")
	}

	conv.End(now)
	if conv.State != ConversationEnded {
		t.Fatal("expected End to move the conversation to ended")
	}
}

func TestConversationExhaustionEndsIt(t *testing.T) {
	now := time.Now()
	conv := NewConversation(NewConversationID(), NewPlayerID(), NewPlayerID(), now)
	conv.MaxMessages = 2
	conv.BeginWalkingOver()
	conv.BeginParticipating(now)

	conv.AddLine(conv.Initiator, "one", 1, now)
	conv.AddLine(conv.Invitee, "two", 2, now)

	if !conv.IsExhausted() {
		t.Fatal("expected the conversation to be exhausted at MaxMessages")
	}
	if conv.AddLine(conv.Initiator, "three", 3, now) {
		t.Fatal("AddLine must refuse once exhausted")
	}
	if !conv.ShouldEnd(now) {
		t.Fatal("an exhausted conversation should end")
	}
}

func TestConversationInviteExpiry(t *testing.T) {
	now := time.Now()
	conv := NewConversation(NewConversationID(), NewPlayerID(), NewPlayerID(), now)
	if conv.InviteExpired(now.Add(InviteTimeout - time.Second)) {
		t.Fatal("invite should not be expired before InviteTimeout elapses")
	}
	if !conv.InviteExpired(now.Add(InviteTimeout + time.Second)) {
		t.Fatal("invite should be expired after InviteTimeout elapses")
	}
}

func TestCandidateScoreExcludesHighRevenge(t *testing.T) {
	if _, eligible := CandidateScore(50, 71, 0, 0, 1); eligible {
		t.Fatal("revenge > 70 must exclude the candidate entirely")
	}
	score, eligible := CandidateScore(50, 0, 0, 0, 0)
	if !eligible {
		t.Fatal("a neutral candidate at zero distance should be eligible")
	}
	if score <= 0 {
		t.Fatalf("expected a positive score for a friendly nearby candidate, got %f", score)
	}
}

func TestCandidateScoreFallsOffWithDistance(t *testing.T) {
	near, _ := CandidateScore(0, 0, 0, 0, 0)
	far, _ := CandidateScore(0, 0, 0, 0, 100)
	if far >= near {
		t.Fatalf("expected score to fall off with distance: near=%f far=%f", near, far)
	}
}
