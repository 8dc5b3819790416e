package main

// @title           Fulfillment API
// @version         1.0
// @description     Orders, deliveries, inventory batches, issues and financial reports.
// @host            localhost:8080
// @BasePath        /
func main() {
	Execute()
}
