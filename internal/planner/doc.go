// Package planner обрабатывает запросы построения execution plans.
//
// Planner отвечает за:
//   - Получение запросов планирования из очереди RabbitMQ
//   - Загрузку шаблонов и определения pipeline из БД
//   - Резолюцию графа jobs (шаблоны, параметры, conditions, зависимости)
//   - Построение плана батчей для параллельного выполнения
//   - Публикацию готового плана внешнему executor'у
//
// Planner не выполняет jobs — выполнение полностью на стороне executor'а.
package planner
