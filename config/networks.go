package config

// Per-network contract addressing. The controller address is the
// compatibility boundary; everything else is display metadata.
type Network struct {
	ChainID       int64
	Name          string
	RpcUrl        string
	BlockExplorer string

	Controller string // ETHRegistrarController
	Resolver   string // public resolver passed in register()
}

var SupportedNetworks = map[int64]Network{
	1: {
		ChainID:       1,
		Name:          "Ethereum Mainnet",
		RpcUrl:        "https://eth-mainnet.g.alchemy.com/v2/YOUR_API_KEY",
		BlockExplorer: "https://etherscan.io",
		Controller:    "0x253553366Da8546fC250F225fe3d25d0C782303b",
		Resolver:      "0x231b0Ee14048e9dCcD1d247744d114a4EB5E8E63",
	},
	11155111: {
		ChainID:       11155111,
		Name:          "Ethereum Sepolia Testnet",
		RpcUrl:        "https://ethereum-sepolia.publicnode.com",
		BlockExplorer: "https://sepolia.etherscan.io",
		Controller:    "0xFED6a969AaA60E4961FCD3EBF1A2e8913ac65B72",
		Resolver:      "0x8FADE66B79cC9f707aB26799354482EB93a5B7dD",
	},
	31337: {
		ChainID:       31337,
		Name:          "Local Anvil Network",
		RpcUrl:        "http://127.0.0.1:8545",
		BlockExplorer: "",
		Controller:    "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		Resolver:      "0xe24DF601F19e18843a7bA1766E42a0a432D7324C",
	},
}

const DefaultChainID = 11155111

func NetworkFor(chainID int64) (Network, bool) {
	n, ok := SupportedNetworks[chainID]
	return n, ok
}
