package registry

// CashbackWalletABI covers the WarderWallet methods the client invokes.
const CashbackWalletABI = `[
  {"type":"function","name":"getUserBalance","stateMutability":"view","inputs":[{"name":"_user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getMyBalance","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"cashbackBalances","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalCashbackHeld","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"totalClaimedAmount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"minimumClaimAmount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"claimFeeRate","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"canClaim","stateMutability":"view","inputs":[{"name":"_user","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"calculateClaimFee","stateMutability":"view","inputs":[{"name":"_user","type":"address"}],"outputs":[{"name":"fee","type":"uint256"},{"name":"netAmount","type":"uint256"}]},
  {"type":"function","name":"claimCashback","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"type":"event","name":"CashbackCredited","inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}],"anonymous":false},
  {"type":"event","name":"CashbackClaimed","inputs":[{"name":"user","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false},{"name":"fee","type":"uint256","indexed":false}],"anonymous":false}
]`

// ERC20ABI covers the token methods used by allowance-gated deployments.
const ERC20ABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"allowance","stateMutability":"view","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// FeeManagerABI covers the fee-split computation used by the
// feemanager strategy.
const FeeManagerABI = `[
  {"type":"function","name":"calculateFee","stateMutability":"view","inputs":[{"name":"_amount","type":"uint256"}],"outputs":[{"name":"fee","type":"uint256"},{"name":"netAmount","type":"uint256"}]},
  {"type":"function","name":"feeRate","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`
