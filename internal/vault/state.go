package vault

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// state is everything a failed operation must roll back.
type state struct {
	owner                    common.Address
	manager                  common.Address
	swapRelayer              common.Address
	feeConfig                FeeConfig
	rules                    Rules
	totalSupply              *uint256.Int
	balances                 map[common.Address]*uint256.Int
	lastCollectManagementFee uint64
	positions                *positionBook
}

func (s *state) clone() *state {
	cp := *s
	cp.totalSupply = s.totalSupply.Clone()
	cp.balances = make(map[common.Address]*uint256.Int, len(s.balances))
	for holder, bal := range s.balances {
		cp.balances[holder] = bal.Clone()
	}
	cp.positions = s.positions.clone()
	return &cp
}

func (s *state) balanceOf(holder common.Address) *uint256.Int {
	if bal, ok := s.balances[holder]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

func (s *state) setBalance(holder common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		delete(s.balances, holder)
		return
	}
	s.balances[holder] = amount
}

func (s *state) mint(to common.Address, shares *uint256.Int) error {
	supply, overflow := new(uint256.Int).AddOverflow(s.totalSupply, shares)
	if overflow {
		return ErrArithmeticOverflow
	}
	s.totalSupply = supply
	s.setBalance(to, new(uint256.Int).Add(s.balanceOf(to), shares))
	return nil
}

func (s *state) burn(from common.Address, shares *uint256.Int) error {
	bal := s.balanceOf(from)
	if bal.Lt(shares) {
		return ErrInsufficientShares
	}
	s.setBalance(from, new(uint256.Int).Sub(bal, shares))
	s.totalSupply = new(uint256.Int).Sub(s.totalSupply, shares)
	return nil
}

func (s *state) move(from, to common.Address, shares *uint256.Int) error {
	bal := s.balanceOf(from)
	if bal.Lt(shares) {
		return ErrInsufficientShares
	}
	if from == to || shares.IsZero() {
		return nil
	}
	s.setBalance(from, new(uint256.Int).Sub(bal, shares))
	s.setBalance(to, new(uint256.Int).Add(s.balanceOf(to), shares))
	return nil
}
