package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ratchetlink/internal/crypto"
	"ratchetlink/internal/domain/types"
	"ratchetlink/internal/ratchet"
)

// demoCmd runs the full Invite/Accept/Listen handshake between two
// in-process identities over wire.Bus, then sends one message from bob to
// alice.
// It exists to exercise internal/app end to end against the in-memory bus;
// it is not a product surface (spec.md SS1 "Out of scope").
func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run a sample invite, accept, and message exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			alicePriv, alicePub, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			bobPriv, bobPub, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			alice := types.Identity{Pub: alicePub, Priv: alicePriv}
			bob := types.Identity{Pub: bobPub, Priv: bobPriv}

			fmt.Printf("alice: %s\n", crypto.Fingerprint(alice.Pub))
			fmt.Printf("bob:   %s\n", crypto.Fingerprint(bob.Pub))

			inv, ephPriv, _, err := wire.CreateInvite(alice, "alice-phone", "Alice's Phone")
			if err != nil {
				return fmt.Errorf("create invite: %w", err)
			}
			fmt.Println("alice published an invite")

			sessions := make(chan *ratchet.Session, 1)
			unsub, err := wire.ListenForInvite(&inv, alice, ephPriv, func(session *ratchet.Session, inviteePub types.PublicKey, deviceID string) {
				sessions <- session
			})
			if err != nil {
				return fmt.Errorf("listen for invite: %w", err)
			}
			defer unsub()

			bobSession, err := wire.AcceptInvite(inv, bob, "bob-laptop")
			if err != nil {
				return fmt.Errorf("accept invite: %w", err)
			}
			fmt.Println("bob accepted the invite")

			var aliceSession *ratchet.Session
			select {
			case aliceSession = <-sessions:
				fmt.Println("alice observed bob's response and opened a session")
			case <-time.After(5 * time.Second):
				return fmt.Errorf("timed out waiting for alice's session")
			}

			received := make(chan string, 1)
			aliceSession.OnEvent(func(inner types.InnerEvent) {
				received <- inner.Content
			})

			outer, _, err := bobSession.Send("hello alice")
			if err != nil {
				return fmt.Errorf("bob send: %w", err)
			}
			if err := wire.Bus.Publish(outer); err != nil {
				return fmt.Errorf("publish: %w", err)
			}

			select {
			case msg := <-received:
				fmt.Printf("alice received: %q\n", msg)
			case <-time.After(5 * time.Second):
				return fmt.Errorf("timed out waiting for alice to receive bob's message")
			}

			return nil
		},
	}
}
