package sale

import (
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric-protos-go/peer"
	"google.golang.org/protobuf/types/known/timestamppb"
)

//go:generate counterfeiter -o mocks/transactioncontext.go -fake-name TransactionContext . TransactionContextInterface

// TransactionContextInterface is the slice of the Fabric transaction context
// the sale contract uses. Keeping it narrow lets tests fake it without
// implementing the full chaincode stub surface.
type TransactionContextInterface interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
	GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error)
	SetEvent(name string, payload []byte) error
	GetTxID() string
	GetTxTimestamp() (*timestamppb.Timestamp, error)
	GetChannelID() string
	InvokeChaincode(chaincodeName string, args [][]byte, channel string) peer.Response
	GetClientIdentity() cid.ClientIdentity
}

// TransactionContext adapts the contractapi transaction context to
// TransactionContextInterface by forwarding ledger access to the stub.
type TransactionContext struct {
	contractapi.TransactionContext
}

func (c *TransactionContext) GetState(key string) ([]byte, error) {
	return c.GetStub().GetState(key)
}

func (c *TransactionContext) PutState(key string, value []byte) error {
	return c.GetStub().PutState(key, value)
}

func (c *TransactionContext) GetStateByRange(startKey, endKey string) (shim.StateQueryIteratorInterface, error) {
	return c.GetStub().GetStateByRange(startKey, endKey)
}

func (c *TransactionContext) SetEvent(name string, payload []byte) error {
	return c.GetStub().SetEvent(name, payload)
}

func (c *TransactionContext) GetTxID() string {
	return c.GetStub().GetTxID()
}

func (c *TransactionContext) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return c.GetStub().GetTxTimestamp()
}

func (c *TransactionContext) GetChannelID() string {
	return c.GetStub().GetChannelID()
}

func (c *TransactionContext) InvokeChaincode(chaincodeName string, args [][]byte, channel string) peer.Response {
	return c.GetStub().InvokeChaincode(chaincodeName, args, channel)
}
