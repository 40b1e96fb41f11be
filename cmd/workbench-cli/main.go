// main.go — CLI рабочего места: поиск по отчёту, просмотр дерева тендера,
// дублирование и удаление записей через сервис данных.
package main

func main() {
	execute()
}
