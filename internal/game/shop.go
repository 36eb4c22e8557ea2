package game

import (
	"errors"
	"fmt"
)

// UpgradeKind names a purchasable stat
type UpgradeKind string

const (
	UpgradeMaxHealth UpgradeKind = "maxHealth"
	UpgradeAttack    UpgradeKind = "attack"
	UpgradeSpeed     UpgradeKind = "speed"

	// ShopCancel closes the shop without buying
	ShopCancel = "cancel"
)

// Shop receipt results and rejection reasons
const (
	ResultBought = "bought"
	ResultError  = "error"

	ReasonCancel     = "cancel"
	ReasonNoGold     = "not enough gold"
	ReasonUnknown    = "unknown item"
	ReasonNotPlaying = "not playing"
)

// ErrUnknownUpgrade is returned for an item outside the catalog
var ErrUnknownUpgrade = errors.New("game: unknown upgrade")

// Rejection is a purchase refused without any state change
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return fmt.Sprintf("purchase rejected: %s", r.Reason) }

// Prices is the current price of each upgrade
type Prices struct {
	MaxHealth int `json:"maxHealth"`
	Attack    int `json:"attack"`
	Speed     int `json:"speed"`
}

// ShopReceipt answers a shop request
type ShopReceipt struct {
	Result string  `json:"result"`
	Reason string  `json:"reason,omitempty"`
	Items  *Prices `json:"items,omitempty"`
	Coins  int     `json:"coins"`
}

func (c Cost) at(count int) int { return c.Base + c.Increase*count }

func (t Tuning) pricesFor(u Upgrades) Prices {
	return Prices{
		MaxHealth: t.Prices.MaxHealth.at(u.MaxHealth),
		Attack:    t.Prices.Attack.at(u.Attack),
		Speed:     t.Prices.Speed.at(u.Speed),
	}
}

// Price returns the current price of kind for a player with upgrades u
func (t Tuning) Price(kind UpgradeKind, u Upgrades) (int, error) {
	p := t.pricesFor(u)
	switch kind {
	case UpgradeMaxHealth:
		return p.MaxHealth, nil
	case UpgradeAttack:
		return p.Attack, nil
	case UpgradeSpeed:
		return p.Speed, nil
	}
	return 0, ErrUnknownUpgrade
}

// buy debits gold, counts the upgrade, refreshes stats and heals. Either all
// of that happens or nothing does.
func buy(p *Player, kind UpgradeKind, t Tuning) error {
	price, err := t.Price(kind, p.Upgrades)
	if err != nil {
		return &Rejection{Reason: ReasonUnknown}
	}
	if p.Gold < price {
		return &Rejection{Reason: ReasonNoGold}
	}
	p.Gold -= price
	switch kind {
	case UpgradeMaxHealth:
		p.Upgrades.MaxHealth++
	case UpgradeAttack:
		p.Upgrades.Attack++
	case UpgradeSpeed:
		p.Upgrades.Speed++
	}
	p.applyStats(t)
	p.heal()
	return nil
}

// Purchase handles a shop request from a participant. "cancel" and every
// refusal come back as an error-shaped receipt, never as a Go error.
func (s *Session) Purchase(id, item string) ShopReceipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.member(id)
	if m == nil || m.player == nil || s.closed {
		return ShopReceipt{Result: ResultError, Reason: ReasonNotPlaying}
	}
	p := m.player
	if item == ShopCancel {
		return ShopReceipt{Result: ResultError, Reason: ReasonCancel, Coins: p.Gold}
	}
	if err := buy(p, UpgradeKind(item), s.tuning); err != nil {
		var rej *Rejection
		reason := err.Error()
		if errors.As(err, &rej) {
			reason = rej.Reason
		}
		return ShopReceipt{Result: ResultError, Reason: reason, Coins: p.Gold}
	}
	s.events.Track(EvtPurchase, s.room, m.Name, item)
	prices := s.tuning.pricesFor(p.Upgrades)
	return ShopReceipt{Result: ResultBought, Items: &prices, Coins: p.Gold}
}
