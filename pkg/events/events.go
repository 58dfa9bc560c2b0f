package events

import "encoding/json"

// Kind identifies a decoded on-chain event type.
type Kind string

// Factory events
const (
	KindFactoryInitialized   Kind = "FactoryInitialized"
	KindPairCreated          Kind = "PairCreated"
	KindOwnerUpdated         Kind = "OwnerUpdated"
	KindFeesReceiverUpdated  Kind = "FeesReceiverUpdated"
	KindPairClassHashUpdated Kind = "PairClassHashUpdated"
)

// Pair events
const (
	KindMint           Kind = "Mint"
	KindBurn           Kind = "Burn"
	KindSwap           Kind = "Swap"
	KindSync           Kind = "Sync"
	KindSkim           Kind = "Skim"
	KindERC20Recovered Kind = "ERC20Recovered"
)

// Powerplant events
const (
	KindPowerplantInitialized          Kind = "PowerplantInitialized"
	KindReactorCreated                 Kind = "ReactorCreated"
	KindPowerplantOwnershipTransferred Kind = "PowerplantOwnershipTransferred"
	KindReactorClassHashUpdated        Kind = "ReactorClassHashUpdated"
)

// Reactor events
const (
	KindDeposit                     Kind = "Deposit"
	KindWithdraw                    Kind = "Withdraw"
	KindHarvest                     Kind = "Harvest"
	KindRewardAdded                 Kind = "RewardAdded"
	KindRewarderAdded               Kind = "RewarderAdded"
	KindRewarderRemoved             Kind = "RewarderRemoved"
	KindUnallocatedRewardsClaimed   Kind = "UnallocatedRewardsClaimed"
	KindReactorOwnershipTransferred Kind = "ReactorOwnershipTransferred"
	KindPenaltyReceiverUpdated      Kind = "PenaltyReceiverUpdated"
)

// Meta carries the chain coordinates shared by every decoded event. The
// triple (Block, TxIndex, EventIndex) orders events globally; Address is the
// emitting contract.
type Meta struct {
	Address    string `json:"address"`
	TxHash     string `json:"tx_hash"`
	Block      uint64 `json:"block"`
	TxIndex    uint32 `json:"tx_index"`
	EventIndex uint32 `json:"event_index"`
	Timestamp  int64  `json:"timestamp"`
}

// Envelope is the wire form of one decoded event: its kind, chain
// coordinates, and the kind-specific payload left raw until dispatch.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Meta    Meta            `json:"meta"`
	Payload json.RawMessage `json:"payload"`
}
