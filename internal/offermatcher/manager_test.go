/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package offermatcher_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/launchd/launchd/internal/model"
	"github.com/launchd/launchd/internal/offermatcher"
)

// recordingMatcher is a model.MatchOfferer test double. If consume is
// non-zero it always accepts and reports having used that much of the
// offer's resources; onCall, if set, runs before the match decision (used
// to simulate a launcher unsubscribing or a clock advancing mid-round).
type recordingMatcher struct {
	appID      string
	consume    model.Resources
	accept     bool
	onCall     func()
	seenOffers []model.Offer
}

func (m *recordingMatcher) MatchOffer(_ context.Context, _ time.Time, offer model.Offer) (model.TaskWithSource, bool) {
	m.seenOffers = append(m.seenOffers, offer)
	if m.onCall != nil {
		m.onCall()
	}
	if !m.accept {
		return model.TaskWithSource{}, false
	}
	return model.TaskWithSource{LaunchSpec: model.LaunchSpec{AppID: m.appID, Resources: m.consume}}, true
}

var _ = Describe("Manager", func() {
	var fc *clocktesting.FakeClock
	var mgr *offermatcher.Manager
	var offer model.Offer

	BeforeEach(func() {
		fc = clocktesting.NewFakeClock(time.Now())
		mgr = offermatcher.New(fc)
		offer = model.Offer{
			ID:        "offer-1",
			Resources: model.Resources{CPUs: 2, MemMB: 2048, DiskMB: 2048, Ports: 2},
		}
	})

	It("dispatches sequentially, netting each launcher's consumption from the next launcher's view", func() {
		first := &recordingMatcher{appID: "a", accept: true, consume: model.Resources{CPUs: 1, MemMB: 512}}
		second := &recordingMatcher{appID: "b", accept: true, consume: model.Resources{CPUs: 1, MemMB: 512}}
		mgr.Subscribe("a", first)
		mgr.Subscribe("b", second)

		matched := mgr.MatchOffer(context.Background(), fc.Now().Add(time.Minute), offer)

		Expect(matched.Tasks).To(HaveLen(2))
		Expect(second.seenOffers).To(HaveLen(1))
		Expect(second.seenOffers[0].Resources.CPUs).To(Equal(1.0))
		Expect(second.seenOffers[0].Resources.MemMB).To(Equal(1536.0))
	})

	It("ends the round early and asks for a resend once the deadline passes", func() {
		deadline := fc.Now().Add(time.Second)
		first := &recordingMatcher{appID: "a", accept: true, onCall: func() { fc.Step(2 * time.Second) }}
		second := &recordingMatcher{appID: "b", accept: true}
		mgr.Subscribe("a", first)
		mgr.Subscribe("b", second)

		matched := mgr.MatchOffer(context.Background(), deadline, offer)

		Expect(matched.ResendThisOffer).To(BeTrue())
		Expect(second.seenOffers).To(BeEmpty())
	})

	It("does not ask for a resend when every subscriber got a chance", func() {
		first := &recordingMatcher{appID: "a", accept: false}
		mgr.Subscribe("a", first)

		matched := mgr.MatchOffer(context.Background(), fc.Now().Add(time.Minute), offer)

		Expect(matched.Tasks).To(BeEmpty())
		Expect(matched.ResendThisOffer).To(BeFalse())
	})

	It("defers a mid-round Subscribe/Unsubscribe to the next round", func() {
		var late *recordingMatcher
		first := &recordingMatcher{appID: "a", accept: false, onCall: func() {
			late = &recordingMatcher{appID: "late", accept: false}
			mgr.Subscribe("late", late)
		}}
		mgr.Subscribe("a", first)

		mgr.MatchOffer(context.Background(), fc.Now().Add(time.Minute), offer)
		Expect(late.seenOffers).To(BeEmpty())

		mgr.MatchOffer(context.Background(), fc.Now().Add(time.Minute), offer)
		Expect(late.seenOffers).To(HaveLen(1))
	})

	It("stops calling an unsubscribed launcher on the next round", func() {
		first := &recordingMatcher{appID: "a", accept: false}
		mgr.Subscribe("a", first)
		mgr.MatchOffer(context.Background(), fc.Now().Add(time.Minute), offer)

		mgr.Unsubscribe("a")
		mgr.MatchOffer(context.Background(), fc.Now().Add(time.Minute), offer)

		Expect(first.seenOffers).To(HaveLen(1))
	})
})
