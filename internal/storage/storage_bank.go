package storage

import (
	"errors"
	"fmt"
	"time"
)

const startingBalance int64 = 1000

var ErrInsufficientFunds = errors.New("insufficient funds")

// Balance returns a user's balance, opening the account on first use.
func (s *Storage) Balance(guildID, userID string) (int64, error) {
	var balance int64
	err := s.update(guildID, func(r *Record) error {
		balance = s.account(r, userID).Balance
		return nil
	})
	return balance, err
}

// Transfer moves funds between two users. The whole operation happens
// under the guild record lock, so balances cannot go negative through
// concurrent transfers.
func (s *Storage) Transfer(guildID, fromID, toID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive, got %d", amount)
	}
	return s.update(guildID, func(r *Record) error {
		from := s.account(r, fromID)
		to := s.account(r, toID)
		if from.Balance < amount {
			return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFunds, from.Balance, amount)
		}
		from.Balance -= amount
		to.Balance += amount
		r.Balances[fromID] = *from
		r.Balances[toID] = *to
		return nil
	})
}

// Adjust adds delta to a user's balance (negative deltas allowed down to
// zero).
func (s *Storage) Adjust(guildID, userID string, delta int64) (int64, error) {
	var balance int64
	err := s.update(guildID, func(r *Record) error {
		acct := s.account(r, userID)
		if acct.Balance+delta < 0 {
			return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFunds, acct.Balance, -delta)
		}
		acct.Balance += delta
		r.Balances[userID] = *acct
		balance = acct.Balance
		return nil
	})
	return balance, err
}

// CasinoCooldownLeft returns the remaining cooldown; zero means the user
// may play. Playing stamps the cooldown.
func (s *Storage) CasinoCooldownLeft(guildID, userID string, cooldown time.Duration) (time.Duration, error) {
	var left time.Duration
	err := s.view(guildID, func(r *Record) {
		if acct, ok := r.Balances[userID]; ok && !acct.LastCasino.IsZero() {
			if until := acct.LastCasino.Add(cooldown); time.Now().Before(until) {
				left = time.Until(until)
			}
		}
	})
	return left, err
}

// StampCasino records the time of a casino play.
func (s *Storage) StampCasino(guildID, userID string) error {
	return s.update(guildID, func(r *Record) error {
		acct := s.account(r, userID)
		acct.LastCasino = time.Now().UTC()
		r.Balances[userID] = *acct
		return nil
	})
}

func (s *Storage) account(r *Record, userID string) *BankAccount {
	acct, ok := r.Balances[userID]
	if !ok {
		acct = BankAccount{Balance: startingBalance}
		r.Balances[userID] = acct
	}
	return &acct
}
