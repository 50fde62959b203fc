package registrar

// ETHRegistrarController surface used by the registration workflow. The
// register() tuple layout is the controller's on-chain ABI and is
// compatibility-critical.
const controllerABI = `[
  {
    "type": "function", "name": "available", "stateMutability": "view",
    "inputs": [{"name": "name", "type": "string"}],
    "outputs": [{"name": "", "type": "bool"}]
  },
  {
    "type": "function", "name": "rentPrice", "stateMutability": "view",
    "inputs": [
      {"name": "name", "type": "string"},
      {"name": "duration", "type": "uint256"}
    ],
    "outputs": [
      {
        "name": "price", "type": "tuple",
        "components": [
          {"name": "base", "type": "uint256"},
          {"name": "premium", "type": "uint256"}
        ]
      }
    ]
  },
  {
    "type": "function", "name": "minCommitmentAge", "stateMutability": "view",
    "inputs": [], "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function", "name": "maxCommitmentAge", "stateMutability": "view",
    "inputs": [], "outputs": [{"name": "", "type": "uint256"}]
  },
  {
    "type": "function", "name": "commit", "stateMutability": "nonpayable",
    "inputs": [{"name": "commitment", "type": "bytes32"}], "outputs": []
  },
  {
    "type": "function", "name": "register", "stateMutability": "payable",
    "inputs": [
      {
        "name": "registration", "type": "tuple",
        "components": [
          {"name": "label", "type": "string"},
          {"name": "owner", "type": "address"},
          {"name": "duration", "type": "uint256"},
          {"name": "secret", "type": "bytes32"},
          {"name": "resolver", "type": "address"},
          {"name": "data", "type": "bytes[]"},
          {"name": "reverseRecord", "type": "uint8"},
          {"name": "referrer", "type": "bytes32"}
        ]
      }
    ],
    "outputs": []
  },
  {
    "type": "function", "name": "renew", "stateMutability": "payable",
    "inputs": [
      {"name": "name", "type": "string"},
      {"name": "duration", "type": "uint256"}
    ],
    "outputs": []
  }
]`
