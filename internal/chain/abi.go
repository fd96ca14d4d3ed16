package chain

// rewardsABI covers the MonadTypeRewards functions the backend calls.
const rewardsABI = `[
  {"type":"function","name":"rewardPlayer","stateMutability":"nonpayable",
   "inputs":[{"name":"player","type":"address"},{"name":"level","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"hasClaimedLevel","stateMutability":"view",
   "inputs":[{"name":"player","type":"address"},{"name":"level","type":"uint256"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getLevelReward","stateMutability":"view",
   "inputs":[{"name":"level","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getHighestLevel","stateMutability":"view",
   "inputs":[{"name":"player","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"RewardPaid","anonymous":false,
   "inputs":[{"name":"player","type":"address","indexed":true},
             {"name":"level","type":"uint256","indexed":true},
             {"name":"amount","type":"uint256","indexed":false}]}
]`

// tokenABI covers the MonadTypeToken read calls.
const tokenABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"decimals","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"symbol","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"string"}]}
]`
