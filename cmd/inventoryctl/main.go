package main

import (
	"context"

	"dealer-inventory/cmd/inventoryctl/commands"
)

func main() {
	commands.ExecuteContext(context.Background())
}
