// Command turnbot runs the movie recommendation bot and the train status bot.
package main

func main() {
	Execute()
}
