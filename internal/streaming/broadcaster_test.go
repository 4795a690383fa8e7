package streaming_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/critfumble/encounter-api/internal/entities"
	"github.com/critfumble/encounter-api/internal/streaming"
)

type BroadcasterTestSuite struct {
	suite.Suite
	broadcaster *streaming.Broadcaster
}

func TestBroadcasterSuite(t *testing.T) {
	suite.Run(t, new(BroadcasterTestSuite))
}

func (s *BroadcasterTestSuite) SetupTest() {
	s.broadcaster = streaming.New(&streaming.Config{
		HeartbeatInterval: 20 * time.Millisecond,
		BufferSize:        4,
	})
}

func decode(s *BroadcasterTestSuite, payload []byte) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(payload, &out))
	return out
}

func (s *BroadcasterTestSuite) receive(sub *streaming.Subscription) map[string]any {
	select {
	case payload := <-sub.Events():
		return decode(s, payload)
	case <-time.After(time.Second):
		s.Require().FailNow("timed out waiting for event")
		return nil
	}
}

func testEncounter(id string) *entities.Encounter {
	return &entities.Encounter{
		ID:      id,
		OwnerID: "user_1",
		Name:    "Boss Fight",
		Status:  entities.StatusActive,
		Round:   1,
	}
}

func (s *BroadcasterTestSuite) TestSubscribeQueuesConnectionEvent() {
	sub := s.broadcaster.Subscribe("enc_1")
	defer sub.Close()

	ev := s.receive(sub)
	s.Assert().Equal(streaming.EventConnection, ev["type"])
	s.Assert().Equal("enc_1", ev["encounterId"])
	s.Assert().NotEmpty(ev["timestamp"])
}

func (s *BroadcasterTestSuite) TestDeliverSendsSnapshot() {
	sub := s.broadcaster.Subscribe("enc_1")
	defer sub.Close()
	s.receive(sub) // connection

	sub.Deliver(testEncounter("enc_1"))

	ev := s.receive(sub)
	s.Assert().Equal(streaming.EventEncounterUpdate, ev["type"])
	enc, ok := ev["encounter"].(map[string]any)
	s.Require().True(ok)
	s.Assert().Equal("enc_1", enc["id"])
}

func (s *BroadcasterTestSuite) TestPublishFansOutToEncounterSubscribersOnly() {
	sub1 := s.broadcaster.Subscribe("enc_1")
	defer sub1.Close()
	sub2 := s.broadcaster.Subscribe("enc_1")
	defer sub2.Close()
	other := s.broadcaster.Subscribe("enc_2")
	defer other.Close()

	s.receive(sub1)
	s.receive(sub2)
	s.receive(other)

	s.broadcaster.Publish("enc_1", testEncounter("enc_1"))

	s.Assert().Equal(streaming.EventEncounterUpdate, s.receive(sub1)["type"])
	s.Assert().Equal(streaming.EventEncounterUpdate, s.receive(sub2)["type"])

	select {
	case payload := <-other.Events():
		// Heartbeats are fine; an update for enc_1 is not.
		s.Assert().NotEqual(streaming.EventEncounterUpdate, decode(s, payload)["type"])
	default:
	}
}

func (s *BroadcasterTestSuite) TestFullBufferDropsInsteadOfBlocking() {
	sub := s.broadcaster.Subscribe("enc_1")
	defer sub.Close()

	// Never drained; connection event plus publishes saturate the buffer.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.broadcaster.Publish("enc_1", testEncounter("enc_1"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		s.Require().FailNow("publish blocked on a slow subscriber")
	}
}

func (s *BroadcasterTestSuite) TestHeartbeatEmitted() {
	sub := s.broadcaster.Subscribe("enc_1")
	defer sub.Close()
	s.receive(sub) // connection

	ev := s.receive(sub)
	s.Assert().Equal(streaming.EventHeartbeat, ev["type"])
	s.Assert().NotEmpty(ev["timestamp"])
}

func (s *BroadcasterTestSuite) TestCloseStopsHeartbeatAndDeregisters() {
	sub := s.broadcaster.Subscribe("enc_1")
	s.receive(sub) // connection
	s.Assert().Equal(1, s.broadcaster.SubscriberCount("enc_1"))

	sub.Close()
	s.Assert().Equal(0, s.broadcaster.SubscriberCount("enc_1"))

	// Drain whatever was queued before the close, then verify silence for
	// several heartbeat intervals.
	for len(sub.Events()) > 0 {
		<-sub.Events()
	}
	time.Sleep(100 * time.Millisecond)
	s.Assert().Empty(sub.Events(), "no writes after close")

	select {
	case <-sub.Done():
	default:
		s.Fail("done channel should be closed")
	}
}

func (s *BroadcasterTestSuite) TestCloseIsIdempotent() {
	sub := s.broadcaster.Subscribe("enc_1")
	sub.Close()
	sub.Close()
	s.Assert().Equal(0, s.broadcaster.SubscriberCount("enc_1"))
}

func (s *BroadcasterTestSuite) TestRapidSubscribeUnsubscribeChurn() {
	for i := 0; i < 50; i++ {
		sub := s.broadcaster.Subscribe("enc_1")
		s.broadcaster.Publish("enc_1", testEncounter("enc_1"))
		sub.Close()
	}
	s.Assert().Equal(0, s.broadcaster.SubscriberCount("enc_1"))
}

func (s *BroadcasterTestSuite) TestPayloadsAreSingleSanitizedLines() {
	sub := s.broadcaster.Subscribe("enc_1")
	defer sub.Close()
	s.receive(sub) // connection

	enc := testEncounter("enc_1")
	enc.Name = "<script>alert(1)</script>\nBoss"
	sub.Deliver(enc)

	select {
	case payload := <-sub.Events():
		s.Assert().NotContains(string(payload), "\n")
		s.Assert().NotContains(string(payload), "<script>")

		var out map[string]any
		s.Require().NoError(json.Unmarshal(payload, &out))
		inner := out["encounter"].(map[string]any)
		s.Assert().True(strings.Contains(inner["name"].(string), "Boss"))
	case <-time.After(time.Second):
		s.Require().FailNow("timed out waiting for event")
	}
}
