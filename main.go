package main

import (
	"log"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"

	"github.com/Eminivince/NavixEcosystem/sale"
)

func main() {
	saleContract := new(sale.SmartContract)
	saleContract.TransactionContextHandler = new(sale.TransactionContext)

	chaincode, err := contractapi.NewChaincode(saleContract)
	if err != nil {
		log.Panicf("Error creating sale chaincode: %v", err)
	}

	if err := chaincode.Start(); err != nil {
		log.Panicf("Error starting sale chaincode: %v", err)
	}
}
