package sale

import "math/big"

// CalculateImmediateRelease returns the portion of a granted amount unlocked
// at purchase time. Division truncates toward zero.
func CalculateImmediateRelease(amount *big.Int) *big.Int {
	release := new(big.Int).Mul(amount, big.NewInt(immediateReleasePercentage))
	return release.Div(release, big.NewInt(100))
}

// CalculateVestedAmount returns the cumulative vested amount for a schedule
// at the given timestamp. Pure and deterministic: monotonically
// non-decreasing in now and never exceeding TotalPurchased.
//
// Before the cliff ends only the immediate release is vested; afterwards the
// vesting portion unlocks linearly over the vesting duration, saturating at
// the full purchased amount. All arithmetic is integer; division truncates.
func CalculateVestedAmount(schedule *VestingSchedule, cliffPeriod, vestingDuration, now uint64) (*big.Int, error) {
	totalPurchased, ok := new(big.Int).SetString(schedule.TotalPurchased, 10)
	if !ok {
		return nil, ErrInvalidAmount("totalPurchased", schedule.TotalPurchased)
	}

	if totalPurchased.Sign() == 0 {
		return big.NewInt(0), nil
	}

	immediateRelease := CalculateImmediateRelease(totalPurchased)

	cliffEnd := schedule.StartTimestamp + cliffPeriod
	if now < cliffEnd {
		return immediateRelease, nil
	}

	elapsed := now - cliffEnd
	if elapsed >= vestingDuration {
		return totalPurchased, nil
	}

	vestingPortion := new(big.Int).Sub(totalPurchased, immediateRelease)

	linear := new(big.Int).Mul(vestingPortion, new(big.Int).SetUint64(elapsed))
	linear.Div(linear, new(big.Int).SetUint64(vestingDuration))

	return linear.Add(linear, immediateRelease), nil
}

// CalculateClaimable returns vested(now) minus the amount already claimed.
// The result can be negative only on corrupted state; callers treat any
// non-positive value as nothing to claim.
func CalculateClaimable(schedule *VestingSchedule, cliffPeriod, vestingDuration, now uint64) (*big.Int, error) {
	vested, err := CalculateVestedAmount(schedule, cliffPeriod, vestingDuration, now)
	if err != nil {
		return nil, err
	}

	totalClaimed, ok := new(big.Int).SetString(schedule.TotalClaimed, 10)
	if !ok {
		return nil, ErrInvalidAmount("totalClaimed", schedule.TotalClaimed)
	}

	return vested.Sub(vested, totalClaimed), nil
}
