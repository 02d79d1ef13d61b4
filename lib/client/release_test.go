// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package client

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/bureau-foundation/objstore/lib/fdconn"
	"github.com/bureau-foundation/objstore/lib/objectid"
	"github.com/bureau-foundation/objstore/lib/protocol"
	"github.com/bureau-foundation/objstore/lib/testutil"
)

// pairedClient is a Client wired to one end of a socketpair, with the
// other end standing in for the store. It lets release tests observe
// exactly which messages the client sends.
type pairedClient struct {
	*Client
	peer   *fdconn.Conn
	region func() int
	next   int64
}

func newPairedClient(t *testing.T, releaseDelay int, storeCapacity int64) *pairedClient {
	t.Helper()
	local, remote, err := fdconn.Pair(false)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	peer, err := fdconn.FromFile(remote, "store")
	if err != nil {
		local.Close()
		t.Fatalf("FromFile: %v", err)
	}

	options := Options{ReleaseDelay: releaseDelay}.withDefaults()
	regions := newRegionTable()
	c := &Client{
		store:         local,
		logger:        options.Logger,
		releaseDelay:  options.ReleaseDelay,
		cacheBudget:   options.CacheBudget,
		storeCapacity: storeCapacity,
		regions:       regions,
		objects:       newObjectTable(regions),
	}
	t.Cleanup(func() {
		c.Disconnect()
		peer.Close()
	})
	return &pairedClient{Client: c, peer: peer, region: testutil.TempRegion(t, testRegionSize)}
}

// hold tracks refs references to a new sealed object of size bytes, as
// if returned by that many Get calls.
func (p *pairedClient) hold(t *testing.T, size int64, refs int) objectid.ID {
	t.Helper()
	id := objectid.Random()
	object := testObject(1, p.next, size, 0)
	p.next = (p.next + size + 63) &^ 63
	for range refs {
		p.regions.acquire(p.region(), 1, testRegionSize)
		p.objects.track(id, object, true)
	}
	return id
}

// expectRelease reads one message from the store end and checks it is
// a release of id.
func (p *pairedClient) expectRelease(t *testing.T, id objectid.ID) {
	t.Helper()
	p.peer.SetReadDeadline(time.Now().Add(5 * time.Second))
	messageType, body, err := protocol.ReadMessage(p.peer)
	if err != nil {
		t.Fatalf("reading release: %v", err)
	}
	if messageType != protocol.MessageReleaseRequest {
		t.Fatalf("store received %s, want release_request", messageType)
	}
	var request protocol.ReleaseRequest
	if err := protocol.Decode(body, &request); err != nil {
		t.Fatalf("decoding release: %v", err)
	}
	if request.ObjectID != id {
		t.Fatalf("store received release of %s, want %s", request.ObjectID, id)
	}
}

// expectSilence checks the client sent nothing further.
func (p *pairedClient) expectSilence(t *testing.T) {
	t.Helper()
	p.peer.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	messageType, _, err := protocol.ReadMessage(p.peer)
	if err == nil {
		t.Fatalf("store received unexpected %s", messageType)
	}
	if !errors.Is(err, os.ErrDeadlineExceeded) {
		t.Fatalf("reading store end: %v", err)
	}
}

func TestReleaseImmediateWithZeroDelay(t *testing.T) {
	p := newPairedClient(t, 0, 1<<40)
	id := p.hold(t, 100, 1)

	if err := p.Release(id); err != nil {
		t.Fatalf("Release: %v", err)
	}
	p.expectRelease(t, id)
	if p.objects.len() != 0 || p.regions.len() != 0 || p.InUseBytes() != 0 {
		t.Errorf("after release: objects=%d regions=%d inUse=%d, want all zero",
			p.objects.len(), p.regions.len(), p.InUseBytes())
	}
}

func TestReleaseDeferredByCount(t *testing.T) {
	p := newPairedClient(t, 2, 1<<40)
	id := p.hold(t, 100, 3)

	for range 2 {
		if err := p.Release(id); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}
	if p.history.len() != 2 || p.objects.get(id).refs != 3 {
		t.Fatalf("history=%d refs=%d, want both releases deferred", p.history.len(), p.objects.get(id).refs)
	}

	// The third release pushes the history past the delay, so the
	// oldest entry is applied even though bytes are under budget.
	p.Release(id)
	if p.history.len() != 2 {
		t.Fatalf("history length = %d, want 2", p.history.len())
	}
	if refs := p.objects.get(id).refs; refs != 2 {
		t.Fatalf("refs = %d after one flush, want 2", refs)
	}
	p.expectSilence(t)

	p.FlushReleases()
	p.expectRelease(t, id)
	p.expectSilence(t)
	if p.objects.get(id) != nil {
		t.Fatal("object still tracked after flushing every reference")
	}
}

func TestReleaseDeferredByBytes(t *testing.T) {
	// One percent of a 1000-byte store is a 10-byte budget, so any
	// real object is over it.
	p := newPairedClient(t, 64, 1000)
	id := p.hold(t, 100, 1)

	p.Release(id)
	p.expectRelease(t, id)
	if p.history.len() != 0 {
		t.Errorf("history length = %d, want 0", p.history.len())
	}
}

func TestReleaseCacheBudgetCapsCapacityShare(t *testing.T) {
	p := newPairedClient(t, 64, 1<<40)
	p.cacheBudget = 150
	small := p.hold(t, 100, 1)
	p.Release(small)
	p.expectSilence(t)

	// 200 bytes held exceeds the 150-byte cache budget; flushing the
	// oldest entry brings it back under.
	large := p.hold(t, 100, 1)
	p.Release(large)
	p.expectRelease(t, small)
	p.expectSilence(t)
	if p.InUseBytes() != 100 {
		t.Errorf("InUseBytes = %d, want 100", p.InUseBytes())
	}
}

func TestReleaseStaleEntriesAreNoOps(t *testing.T) {
	p := newPairedClient(t, 1, 1<<40)
	id := p.hold(t, 100, 2)

	p.Release(id)
	p.Release(id)
	p.expectSilence(t)
	p.FlushReleases()
	p.expectRelease(t, id)

	// A history entry whose record is already gone is skipped.
	p.history.push(id)
	p.FlushReleases()
	p.expectSilence(t)
}

func TestReleaseMoreThanHeldPanics(t *testing.T) {
	p := newPairedClient(t, 64, 1<<40)
	id := p.hold(t, 100, 1)

	p.Release(id)
	requirePanic(t, "not held", func() { p.Release(id) })
	requirePanic(t, "not held", func() { p.Release(objectid.Random()) })
}

func TestReleaseAfterDisconnectDropsLocally(t *testing.T) {
	p := newPairedClient(t, 0, 1<<40)
	id := p.hold(t, 100, 1)

	if err := p.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if p.regions.len() != 1 || p.InUseBytes() != 100 {
		t.Fatalf("Disconnect unmapped a held object: regions=%d inUse=%d", p.regions.len(), p.InUseBytes())
	}
	if err := p.Release(id); err != nil {
		t.Errorf("Release after Disconnect: %v", err)
	}
	if err := p.Release(id); err != nil {
		t.Errorf("second Release after Disconnect: %v", err)
	}
	if err := p.Release(objectid.Random()); err != nil {
		t.Errorf("Release of unknown object after Disconnect: %v", err)
	}
	if p.regions.len() != 0 || p.InUseBytes() != 0 {
		t.Errorf("after Release: regions=%d inUse=%d, want 0 and 0", p.regions.len(), p.InUseBytes())
	}

	p.peer.SetReadDeadline(time.Now().Add(5 * time.Second))
	if messageType, _, err := protocol.ReadMessage(p.peer); err == nil {
		t.Errorf("store received %s after Disconnect", messageType)
	}
}

func TestDisconnectAppliesDeferredReleasesLocally(t *testing.T) {
	p := newPairedClient(t, 64, 1<<40)
	released := p.hold(t, 100, 2)
	kept := p.hold(t, 50, 2)

	p.Release(released)
	p.Release(released)
	p.Release(kept)
	p.expectSilence(t)

	if err := p.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if p.objects.get(released) != nil {
		t.Error("object whose references all sat in the history is still tracked")
	}
	record := p.objects.get(kept)
	if record == nil || record.refs != 1 || record.pending != 0 {
		t.Fatalf("kept record = %+v, want one reference and nothing pending", record)
	}
	if p.InUseBytes() != 50 || p.regions.len() != 1 {
		t.Errorf("inUse=%d regions=%d, want 50 and 1", p.InUseBytes(), p.regions.len())
	}
}

func TestReleaseMarksStoreLostOnWriteFailure(t *testing.T) {
	p := newPairedClient(t, 0, 1<<40)
	first := p.hold(t, 100, 1)
	second := p.hold(t, 100, 1)

	p.peer.Close()
	if err := p.Release(first); err != nil {
		t.Fatalf("Release with broken store: %v", err)
	}
	if p.Connected() {
		t.Fatal("client still connected after a failed release")
	}
	if err := p.Release(second); err != nil {
		t.Errorf("Release after store lost: %v", err)
	}
	if _, err := p.Contains(second); !errors.Is(err, ErrDisconnected) {
		t.Errorf("Contains after store lost: %v, want ErrDisconnected", err)
	}
}

func TestReleaseHistoryOrder(t *testing.T) {
	var history releaseHistory
	a, b := objectid.Random(), objectid.Random()
	history.push(a)
	history.push(b)
	history.push(a)

	for i, want := range []objectid.ID{a, b, a} {
		if got := history.popOldest(); got != want {
			t.Fatalf("pop %d = %s, want %s", i, got, want)
		}
	}
	if history.len() != 0 {
		t.Errorf("len = %d after draining", history.len())
	}
}

// answerNext reads one request on the store end and hands it to
// respond in a goroutine. The returned channel closes once respond has
// run.
func (p *pairedClient) answerNext(t *testing.T, respond func(protocol.MessageType, []byte)) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.peer.SetReadDeadline(time.Now().Add(5 * time.Second))
		messageType, body, err := protocol.ReadMessage(p.peer)
		if err != nil {
			t.Errorf("reading request: %v", err)
			return
		}
		respond(messageType, body)
	}()
	return done
}

func TestGetPanicsWhenStoreMissesHeldObject(t *testing.T) {
	p := newPairedClient(t, 64, 1<<40)
	held := p.hold(t, 100, 1)
	other := objectid.Random()

	done := p.answerNext(t, func(messageType protocol.MessageType, _ []byte) {
		if messageType != protocol.MessageGetRequest {
			t.Errorf("store received %s, want get_request", messageType)
		}
		missing := protocol.PlasmaObject{DataSize: -1, MetadataSize: -1}
		reply := protocol.GetReply{
			ObjectIDs: []objectid.ID{held, other},
			Objects:   []protocol.PlasmaObject{missing, missing},
		}
		if err := protocol.WriteMessage(p.peer, protocol.MessageGetReply, reply); err != nil {
			t.Errorf("writing reply: %v", err)
		}
	})

	requirePanic(t, "missing while this client holds it", func() {
		p.Get([]objectid.ID{held, other}, 0)
	})
	testutil.RequireClosed(t, done, 5*time.Second, "store end")
}

func TestTransportFailureMarksStoreLost(t *testing.T) {
	tests := []struct {
		name    string
		request func(c *Client) error
	}{
		{"evict", func(c *Client) error {
			_, err := c.Evict(1024)
			return err
		}},
		{"create", func(c *Client) error {
			_, err := c.Create(objectid.Random(), 10, nil)
			return err
		}},
		{"contains", func(c *Client) error {
			_, err := c.Contains(objectid.Random())
			return err
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := newPairedClient(t, 64, 1<<40)
			done := p.answerNext(t, func(protocol.MessageType, []byte) {
				// The store dies between request and reply.
				p.peer.Close()
			})

			if err := test.request(p.Client); err == nil {
				t.Fatal("request succeeded with no reply")
			}
			testutil.RequireClosed(t, done, 5*time.Second, "store end")
			if p.Connected() {
				t.Fatal("client still connected after a failed reply read")
			}
			if err := test.request(p.Client); !errors.Is(err, ErrDisconnected) {
				t.Errorf("second request: %v, want ErrDisconnected", err)
			}
		})
	}
}
