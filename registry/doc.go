// Package registry guarda instâncias únicas por chave dentro de escopos hierárquicos.
//
// Cada chave é criada uma única vez (lazy), mesmo com chamadas concorrentes.
// Destroy desmonta os escopos filhos primeiro e depois as instâncias do próprio
// escopo em ordem inversa de criação, chamando os Hooks configurados.
package registry
