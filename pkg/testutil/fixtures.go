package testutil

import (
	"github.com/google/uuid"
)

// Fixed UUIDs for deterministic testing
var (
	TestCustomerID1 = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	TestCustomerID2 = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	TestOrderID     = uuid.MustParse("6f1c2b7a-9d4e-4c3b-8a21-0e5f7d9c1a42")
	TestGatewayID   = uuid.MustParse("00000000-0000-0000-0000-000000000030")
)
